package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromDMY(t *testing.T) {
	t.Parallel()

	got, err := FromDMY("11/03/2022")
	require.NoError(t, err)
	require.Equal(t, time.Date(2022, time.March, 11, 0, 0, 0, 0, time.UTC), got)

	_, err = FromDMY("2022-03-11")
	require.Error(t, err)
}

func TestFromISO(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Time
	}{
		{"2022-03-11T10:30:00", time.Date(2022, time.March, 11, 10, 30, 0, 0, time.UTC)},
		{"2022-03-11", time.Date(2022, time.March, 11, 0, 0, 0, 0, time.UTC)},
		{"2022-03-11T10:30:00Z", time.Date(2022, time.March, 11, 10, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := FromISO(tc.in)
		require.NoError(t, err, tc.in)
		require.True(t, got.Equal(tc.want), tc.in)
	}

	_, err := FromISO("not-a-date")
	require.Error(t, err)
}

func TestFromCompact(t *testing.T) {
	t.Parallel()

	got, err := FromCompact("11032022")
	require.NoError(t, err)
	require.Equal(t, time.Date(2022, time.March, 11, 0, 0, 0, 0, time.UTC), got)

	_, err = FromCompact("1103202")
	require.Error(t, err)
}

func TestYesterdayCompact(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	require.Equal(t, "31122023", YesterdayCompact(now))
}

func TestMaybeHelpers(t *testing.T) {
	t.Parallel()

	require.Nil(t, MaybeDMY(""))
	require.Nil(t, MaybeDMY("garbage"))
	require.NotNil(t, MaybeDMY("01/06/2023"))

	require.Nil(t, MaybeISO(""))
	require.NotNil(t, MaybeISO("2023-06-01T00:00:00"))
}
