package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandCommand(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"HOME":    "/home/dev",
		"TOOL":    "cargo-nextest",
		"PROFILE": "ci",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	tests := map[string]struct {
		command string
		want    []string
		wantErr error
	}{
		"plain command": {
			command: "cargo test --release",
			want:    []string{"cargo", "test", "--release"},
		},
		"braced and bare variables": {
			command: "cargo $TOOL run --profile ${PROFILE}",
			want:    []string{"cargo", "cargo-nextest", "run", "--profile", "ci"},
		},
		"quoted argument kept whole": {
			command: `sh -c "echo hello world"`,
			want:    []string{"sh", "-c", "echo hello world"},
		},
		"home expansion": {
			command: "~/bin/check ~/data",
			want:    []string{"/home/dev/bin/check", "/home/dev/data"},
		},
		"unset variable": {
			command: "run $NOPE",
			wantErr: ErrUnsetVariable,
		},
		"only whitespace": {
			command: "   ",
			wantErr: ErrEmptyCommand,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := ExpandCommand(tt.command, lookup)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateCommand(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateCommand("cargo test"))
	assert.NoError(t, ValidateCommand("run $UNSET_IS_FINE_HERE"))
	assert.ErrorIs(t, ValidateCommand(""), ErrEmptyCommand)
	assert.Error(t, ValidateCommand(`echo "unterminated`))
}

func TestReport_ExitCode(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		statuses    []Status
		interrupted bool
		want        int
	}{
		"all passed":                 {statuses: []Status{StatusPassed, StatusPassed}, want: ExitOK},
		"skips and allowed failures": {statuses: []Status{StatusPassed, StatusSkipped, StatusAllowedFailure}, want: ExitOK},
		"unallowed failure":          {statuses: []Status{StatusPassed, StatusFailed}, want: ExitFailures},
		"timeout":                    {statuses: []Status{StatusTimedOut}, want: ExitFailures},
		"failure and cancellations":  {statuses: []Status{StatusBuildFailed, StatusCancelled}, want: ExitFailures},
		"interrupt only":             {statuses: []Status{StatusPassed, StatusCancelled}, interrupted: true, want: ExitInterrupted},
		"empty matrix":               {want: ExitOK},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := &Report{Interrupted: tt.interrupted}
			for i, s := range tt.statuses {
				r.Outcomes = append(r.Outcomes, Outcome{Case: Case{Index: i}, Status: s, Cause: s})
			}
			assert.Equal(t, tt.want, r.ExitCode())
		})
	}
}

func TestNewReport_MergesArchSkipped(t *testing.T) {
	t.Parallel()

	cases := []Case{
		{Name: "a", Index: 0, Arch: []string{"aarch64"}},
		{Name: "b", Index: 1},
		{Name: "c", Index: 2, Arch: []string{"aarch64"}},
		{Name: "d", Index: 3},
	}
	plan, err := Partition(cases, linuxHost, SingleShard)
	require.NoError(t, err)

	results := NewResultSet(len(plan.Assigned))
	for i, c := range plan.Assigned {
		results.Set(i, Outcome{Case: c, Status: StatusPassed, Cause: StatusPassed})
	}

	report := NewReport(plan, results)

	require.Len(t, report.Outcomes, 4)
	got := make([]string, 0, 4)
	for _, o := range report.Outcomes {
		got = append(got, o.Case.Name+"="+o.Status.String())
	}
	assert.Equal(t, []string{"a=Skipped", "b=Passed", "c=Skipped", "d=Passed"}, got)
	assert.Equal(t, 2, report.Counts()[StatusSkipped])
	assert.Empty(t, report.Unexpected())
}
