package sanitize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextStripsMarkup(t *testing.T) {
	require.Equal(t, "Office supplies", Text("<b>Office</b> supplies"))
	require.Equal(t, "", Text("<script>alert(1)</script>"))
	require.Equal(t, "Lunch meeting", Text("  Lunch meeting  "))
}

func TestTextPlainPassthrough(t *testing.T) {
	require.Equal(t, "Hotel Drei Könige, Basel", Text("Hotel Drei Könige, Basel"))
}
