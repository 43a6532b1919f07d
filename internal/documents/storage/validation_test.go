package storage

import (
	"testing"

	"property_portal_backend/platform/apperr"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Validate("application/pdf", 1024, 2048))
	require.NoError(t, Validate("Image/JPEG; charset=binary", 1024, 0))

	for name, err := range map[string]error{
		"type":  Validate("application/x-msdownload", 10, 2048),
		"empty": Validate("application/pdf", 0, 2048),
		"large": Validate("application/pdf", 4096, 2048),
	} {
		require.True(t, apperr.Is(err, apperr.KindValidation), name)
	}
}

func TestCleanFileName(t *testing.T) {
	require.Equal(t, "devis.pdf", CleanFileName("../../etc/devis.pdf"))
	require.Equal(t, "photo.jpg", CleanFileName(`C:\Users\lea\photo.jpg`))
	require.Equal(t, "document", CleanFileName("  "))
}
