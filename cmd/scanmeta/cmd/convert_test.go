package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		format  string
		want    string
		wantErr bool
	}{
		{"run01.mzML", "", formatMzML, false},
		{"/data/RUN01.MZML", "", formatMzML, false},
		{"peaks.mgf", "", formatMGF, false},
		{"peaks.txt", "mgf", formatMGF, false},
		{"run01.mzML", "MzML", formatMzML, false},
		{"library.msp", "", "", true},
		{"noextension", "", "", true},
		{"run01.mzML", "raw", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path+"/"+tt.format, func(t *testing.T) {
			got, err := detectFormat(tt.path, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
