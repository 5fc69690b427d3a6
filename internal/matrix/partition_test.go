package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition_ArchFilter(t *testing.T) {
	t.Parallel()

	cases := []Case{
		{Name: "any", Index: 0},
		{Name: "x64", Index: 1, Arch: []string{"x86_64"}},
		{Name: "arm", Index: 2, Arch: []string{"aarch64"}},
		{Name: "both", Index: 3, Arch: []string{"aarch64", "amd64"}},
	}

	plan, err := Partition(cases, linuxHost, SingleShard)

	require.NoError(t, err)
	assert.Equal(t, []string{"any", "x64", "both"}, names(plan.Applicable))
	assert.Equal(t, plan.Applicable, plan.Assigned)
	require.Equal(t, 1, plan.SkippedByArch())
	assert.Equal(t, "arm", plan.ArchSkipped[0].Case.Name)
	assert.Equal(t, StatusSkipped, plan.ArchSkipped[0].Status)
	assert.Equal(t, SkipArch, plan.ArchSkipped[0].SkipReason)
}

func TestPartition_Shards(t *testing.T) {
	t.Parallel()

	cases := makeCases(10)
	// arch filtering happens before sharding, so positions shift
	cases[1].Arch = []string{"riscv64"}

	seen := make(map[string]int)
	total := 3
	for idx := range total {
		plan, err := Partition(cases, linuxHost, Shards{Total: total, Index: idx})
		require.NoError(t, err)
		for i, c := range plan.Applicable {
			if i%total == idx {
				assert.Contains(t, names(plan.Assigned), c.Name)
			}
		}
		for _, c := range plan.Assigned {
			seen[c.Name]++
		}
	}

	assert.Len(t, seen, 9)
	for name, n := range seen {
		assert.Equal(t, 1, n, "case %s assigned to %d shards", name, n)
	}
	assert.NotContains(t, seen, "case-01")
}

func TestPartition_ShardAssignment(t *testing.T) {
	t.Parallel()

	plan, err := Partition(makeCases(5), linuxHost, Shards{Total: 2, Index: 1})

	require.NoError(t, err)
	assert.Equal(t, []string{"case-01", "case-03"}, names(plan.Assigned))
}

func TestPartition_InvalidShards(t *testing.T) {
	t.Parallel()

	tests := map[string]Shards{
		"index equals total": {Total: 2, Index: 2},
		"index above total":  {Total: 2, Index: 5},
		"zero total":         {Total: 0, Index: 0},
		"negative index":     {Total: 3, Index: -1},
	}

	for name, shards := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := Partition(makeCases(3), linuxHost, shards)
			assert.ErrorIs(t, err, ErrInvalidShard)
		})
	}
}

func TestHost_Matching(t *testing.T) {
	t.Parallel()

	mac := Host{OS: "darwin", Arch: "arm64"}

	assert.True(t, mac.MatchesArch(nil))
	assert.True(t, mac.MatchesArch([]string{"aarch64"}))
	assert.True(t, mac.MatchesArch([]string{"ARM64"}))
	assert.False(t, mac.MatchesArch([]string{"x86_64"}))
	assert.True(t, mac.MatchesAny([]string{"macos"}))
	assert.True(t, mac.MatchesAny([]string{"windows", "aarch64"}))
	assert.False(t, mac.MatchesAny([]string{"windows", "linux"}))
	assert.False(t, mac.MatchesAny(nil))
	assert.True(t, SamePlatform("i686", "386"))
	assert.Equal(t, "darwin/arm64", mac.String())
}

func names(cases []Case) []string {
	out := make([]string, len(cases))
	for i, c := range cases {
		out[i] = c.Name
	}
	return out
}
