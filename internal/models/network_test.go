package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteSummary_DisplayName(t *testing.T) {
	short, long, empty := "21G", "Broadway - Tambaram", ""

	tests := []struct {
		route    RouteSummary
		expected string
		name     string
	}{
		{RouteSummary{ID: "R1", ShortName: &short, LongName: &long}, "21G", "Short name first"},
		{RouteSummary{ID: "R1", ShortName: &empty, LongName: &long}, "Broadway - Tambaram", "Empty short name"},
		{RouteSummary{ID: "R1"}, "R1", "Falls back to id"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.route.DisplayName())
		})
	}
}
