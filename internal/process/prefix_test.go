package process

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixedWriter(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		writes []string
		flush  bool
		want   string
	}{
		"single line": {
			writes: []string{"hello\n"},
			want:   "[case] hello\n",
		},
		"line split across writes": {
			writes: []string{"hel", "lo\nwor", "ld\n"},
			want:   "[case] hello\n[case] world\n",
		},
		"flush terminates partial line": {
			writes: []string{"no newline"},
			flush:  true,
			want:   "[case] no newline\n",
		},
		"flush on line start is a no-op": {
			writes: []string{"done\n"},
			flush:  true,
			want:   "[case] done\n",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			pw := NewPrefixedWriter(&buf, "case", &LineLock{})
			for _, w := range tt.writes {
				n, err := pw.Write([]byte(w))
				require.NoError(t, err)
				assert.Equal(t, len(w), n)
			}
			if tt.flush {
				require.NoError(t, pw.Flush())
			}
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
