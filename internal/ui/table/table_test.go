package table

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable(t *testing.T) {
	var tests = []struct {
		create func(t testing.TB) *Table
		output string
	}{
		{
			func(t testing.TB) *Table {
				return New()
			},
			"",
		},
		{
			func(t testing.TB) *Table {
				table := New()
				table.AddColumn("first column")
				table.AddRow("first data field")
				return table
			},
			`
first column
----------------
first data field
----------------
`,
		},
		{
			func(t testing.TB) *Table {
				table := New()
				table.AddColumn("Date")
				table.AddColumn("Size")
				table.AddColumn("Errors")
				table.AddRow("2014-11-05 16:04:30", "2 B")
				table.AddRow("2014-11-06 16:04:30", "1.000 KiB", "yes")
				return table
			},
			`
Date                 Size       Errors
--------------------------------------
2014-11-05 16:04:30  2 B
2014-11-06 16:04:30  1.000 KiB  yes
--------------------------------------
`,
		},
		{
			func(t testing.TB) *Table {
				table := New()
				table.CellSeparator = " | "
				table.AddColumn("Name")
				table.AddColumn("Type")
				table.AddRow("ア", "dir")
				return table
			},
			`
Name | Type
-----------
ア   | dir
-----------
`,
		},
	}

	for _, test := range tests {
		t.Run("", func(t *testing.T) {
			table := test.create(t)
			buf := bytes.NewBuffer(nil)
			err := table.Write(buf)
			if err != nil {
				t.Fatal(err)
			}

			want := strings.TrimLeft(test.output, "\n")
			if buf.String() != want {
				t.Errorf("wrong output\n---- want ---\n%s\n---- got ---\n%s\n-------\n", want, buf.String())
			}
		})
	}
}
