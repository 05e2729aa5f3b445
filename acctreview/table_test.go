package acctreview

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable(
		[]string{"Name", "Count", "Cost", "Note"},
		[][]any{
			{"web, primary", int64(3), MustMoney("12.50"), nil},
			{"db", int64(1), MustMoney("100"), `say "hi"`},
		},
	)
	require.NoError(t, err)
	return table
}

func TestNewTable_Validation(t *testing.T) {
	_, err := NewTable([]string{"A", "A"}, nil)
	assert.Error(t, err, "duplicate header")

	_, err = NewTable([]string{"A", "B"}, [][]any{{"x"}})
	assert.Error(t, err, "short row")

	table, err := NewTable([]string{"A"}, nil)
	require.NoError(t, err)
	assert.True(t, table.Empty())
	assert.NotNil(t, table.Rows)
}

func TestTable_Column(t *testing.T) {
	table := sampleTable(t)
	assert.Equal(t, 2, table.Column("Cost"))
	assert.Equal(t, -1, table.Column("Missing"))
}

func TestTable_CSV(t *testing.T) {
	got, err := sampleTable(t).CSV()
	require.NoError(t, err)

	want := "Name,Count,Cost,Note\n" +
		"\"web, primary\",3,12.50,\n" +
		"db,1,100,\"say \"\"hi\"\"\"\n"
	assert.Equal(t, want, got)
}

func TestTable_JSON(t *testing.T) {
	got, err := sampleTable(t).JSON()
	require.NoError(t, err)

	want := `{"header":["Name","Count","Cost","Note"],"data":[["web, primary",3,12.50,null],["db",1,100,"say \"hi\""]]}`
	assert.Equal(t, want, string(got))
}

func TestTable_JSONEmpty(t *testing.T) {
	table, err := NewTable([]string{"A"}, nil)
	require.NoError(t, err)

	got, err := table.JSON()
	require.NoError(t, err)
	assert.Equal(t, `{"header":["A"],"data":[]}`, string(got))
}

func TestTable_Text(t *testing.T) {
	got := sampleTable(t).Text(0)
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")

	require.Len(t, lines, 4)
	assert.Equal(t, "Name         | Count | Cost  | Note", lines[0])
	assert.Equal(t, "-------------+-------+-------+---------", lines[1])
	assert.Equal(t, "web, primary | 3     | 12.50 | ", lines[2])
	assert.Equal(t, `db           | 1     | 100   | say "hi"`, lines[3])
}

func TestTable_TextLineWidth(t *testing.T) {
	table, err := NewTable(
		[]string{"Id", "Description"},
		[][]any{{"a", strings.Repeat("long text ", 10)}},
	)
	require.NoError(t, err)

	for _, width := range []int{20, 40, 60} {
		for _, line := range strings.Split(strings.TrimSuffix(table.Text(width), "\n"), "\n") {
			assert.LessOrEqual(t, runewidth.StringWidth(line), width, "line %q", line)
		}
	}
	assert.Contains(t, table.Text(20), "~")
}

func TestTable_TextWideRunes(t *testing.T) {
	table, err := NewTable([]string{"Name"}, [][]any{{"東京"}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(table.Text(0), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "----", lines[1])
}
