package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	// Generate many IDs
	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDString tests ID string conversion
func TestIDString(t *testing.T) {
	id := ID("test-123")
	if id.String() != "test-123" {
		t.Errorf("Expected String() to return 'test-123', got '%s'", id.String())
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	emptyID := ID("")
	if !emptyID.IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}

	nonEmptyID := ID("not-empty")
	if nonEmptyID.IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

// TestParseSubjectID tests subject ID parsing
func TestParseSubjectID(t *testing.T) {
	tests := []struct {
		input    string
		expected SubjectID
		hasError bool
	}{
		{"sub-01", SubjectID("sub-01"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, test := range tests {
		result, err := ParseSubjectID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

// TestParseColumnKey tests column key parsing
func TestParseColumnKey(t *testing.T) {
	tests := []struct {
		input    string
		expected ColumnKey
		hasError bool
	}{
		{"reaction_time", ColumnKey("reaction_time"), false},
		{"", "", true},
		{"  ", "", true},
	}

	for _, test := range tests {
		result, err := ParseColumnKey(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

// TestHashDeterminism tests that identical bytes hash identically
func TestHashDeterminism(t *testing.T) {
	a := NewHash([]byte("subject,condition,score"))
	b := NewHash([]byte("subject,condition,score"))
	if !a.Equals(b) {
		t.Errorf("Expected identical hashes, got %s vs %s", a, b)
	}

	c := NewHash([]byte("subject,condition,score2"))
	if a.Equals(c) {
		t.Error("Expected different inputs to produce different hashes")
	}
}
