package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByteCountSI(t *testing.T) {
	testCases := []struct {
		bytes    int
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{999, "999 B"},
		{1000, "1.0 kB"},
		{1500, "1.5 kB"},
		{1048576, "1.0 MB"},
		{2500000000, "2.5 GB"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, ByteCountSI(tc.bytes))
	}
}
