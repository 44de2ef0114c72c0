package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyLabelSet  = errors.New("label set must not be empty")
	ErrDuplicateLabel = errors.New("duplicate label")
)

// UnknownLabel is the catch-all label used as the resolution default when configured
const UnknownLabel = "unknown"

// LabelSet is an ordered, immutable set of distinct labels. Matching is
// case-insensitive while the configured spelling is kept for output.
type LabelSet struct {
	labels []string
	index  map[string]string
}

// NewLabelSet validates and builds a label set
func NewLabelSet(labels []string) (LabelSet, error) {
	if len(labels) == 0 {
		return LabelSet{}, ErrEmptyLabelSet
	}

	set := LabelSet{
		labels: make([]string, 0, len(labels)),
		index:  make(map[string]string, len(labels)),
	}
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			return LabelSet{}, fmt.Errorf("blank label in %v: %w", labels, ErrEmptyLabelSet)
		}
		key := strings.ToLower(label)
		if _, ok := set.index[key]; ok {
			return LabelSet{}, fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
		}
		set.index[key] = label
		set.labels = append(set.labels, label)
	}
	return set, nil
}

// MustLabelSet is like NewLabelSet but panics on invalid input
func MustLabelSet(labels ...string) LabelSet {
	set, err := NewLabelSet(labels)
	if err != nil {
		panic(err)
	}
	return set
}

// Labels returns a copy of the labels in configured order
func (s LabelSet) Labels() []string {
	return append([]string(nil), s.labels...)
}

// Len returns the number of labels
func (s LabelSet) Len() int {
	return len(s.labels)
}

// Lookup returns the configured spelling of name, matched case-insensitively
func (s LabelSet) Lookup(name string) (string, bool) {
	label, ok := s.index[strings.ToLower(strings.TrimSpace(name))]
	return label, ok
}

// Default is the label chosen when nothing else matches: "unknown" when it is
// part of the set, otherwise the first label.
func (s LabelSet) Default() string {
	if label, ok := s.Lookup(UnknownLabel); ok {
		return label
	}
	if len(s.labels) == 0 {
		return ""
	}
	return s.labels[0]
}

// Key is a stable case-insensitive fingerprint of the set
func (s LabelSet) Key() string {
	lowered := make([]string, len(s.labels))
	for i, label := range s.labels {
		lowered[i] = strings.ToLower(label)
	}
	return strings.Join(lowered, "\x00")
}
