package sanitize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	cases := map[string]string{
		"<b>Fuite</b> sous l'évier":               "Fuite sous l'évier",
		"&lt;script&gt;alert(1)&lt;/script&gt;ok": "alert(1)ok",
		"ligne 1\r\n\r\n\r\n\r\nligne   2  ":       "ligne 1\n\nligne 2",
		"  \t ":                                    "",
		"5 &amp; 6":                                "5 & 6",
	}
	for in, want := range cases {
		require.Equal(t, want, Text(in), in)
	}
}

func TestLine(t *testing.T) {
	require.Equal(t, "Chaudière en panne", Line("  Chaudière\n en <i>panne</i> "))
}

func TestTextPtr(t *testing.T) {
	require.Nil(t, TextPtr(nil))
	s := " <p>ok</p> "
	require.Equal(t, "ok", *TextPtr(&s))
}
