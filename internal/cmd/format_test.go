package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutputFormat_Set(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{name: "json", input: "json", want: FormatJSON},
		{name: "yaml", input: "yaml", want: FormatYAML},
		{name: "text", input: "text", want: FormatText},
		{name: "mixed case", input: "JSON", want: FormatJSON},
		{name: "surrounding whitespace", input: "  text  ", want: FormatText},
		{name: "unknown", input: "xml", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var f OutputFormat
			err := f.Set(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid format")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, f)
		})
	}
}

func TestAllowedOutputFormats_Sorted(t *testing.T) {
	t.Parallel()

	formats := AllowedOutputFormats()
	require.Equal(t, OutputFormats{FormatJSON, FormatText, FormatYAML}, formats)
	require.Equal(t, "json, text, yaml", formats.String())
}

func TestOutputFormat_Type(t *testing.T) {
	t.Parallel()

	f := FormatJSON
	require.Equal(t, "format", f.Type())
}
