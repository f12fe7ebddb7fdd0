package uspto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/grantsync/internal/domain/patent"
	"github.com/turtacn/grantsync/pkg/errors"
)

func TestDecodePage_SecondPage(t *testing.T) {
	page, err := DecodePage(fixture(t, "patents_2.json"))
	require.NoError(t, err)
	assert.Equal(t, 9, page.Total)
	require.Len(t, page.Patents, 4)

	// assigneeEntityName omitted entirely
	assert.Nil(t, page.Patents[1].AssigneeEntityName)

	last := page.Patents[3]
	want := patent.Patent{
		PatentNumber:            "09532504",
		PatentApplicationNumber: "US15065125",
		FilingDate:              patent.MustParseDate("2016-03-09"),
		GrantDate:               patent.MustParseDate("2017-01-03"),
		InventionTitle:          "Control arrangement and method for controlling a position of a transfer device of a harvesting machine",
	}
	assert.True(t, want.Equal(last), "got %+v", last)
	assert.Nil(t, last.AssigneeEntityName)
}

func TestDecodePage_Empty(t *testing.T) {
	page, err := DecodePage(fixture(t, "no_patents.json"))
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.NotNil(t, page.Patents)
	assert.Empty(t, page.Patents)
}

func TestDecodePage_ParseErrors(t *testing.T) {
	cases := map[string]string{
		"not json":          `<html>maintenance</html>`,
		"missing results":   `{"recordTotalQuantity": 3}`,
		"null results":      `{"results": null, "recordTotalQuantity": 3}`,
		"missing total":     `{"results": []}`,
		"result not object": `{"results": [42], "recordTotalQuantity": 1}`,
		"missing number": `{"results": [{"patentApplicationNumber":"US1","filingDate":"01-02-2015",
			"grantDate":"01-03-2017","inventionTitle":"t"}], "recordTotalQuantity": 1}`,
		"iso grant date": `{"results": [{"patentNumber":"1","patentApplicationNumber":"US1","filingDate":"01-02-2015",
			"grantDate":"2017-01-03","inventionTitle":"t"}], "recordTotalQuantity": 1}`,
		"bad filing date": `{"results": [{"patentNumber":"1","patentApplicationNumber":"US1","filingDate":"13-45-2015",
			"grantDate":"01-03-2017","inventionTitle":"t"}], "recordTotalQuantity": 1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodePage([]byte(body))
			require.Error(t, err)
			assert.True(t, errors.IsParse(err), "got %v", err)
		})
	}
}
