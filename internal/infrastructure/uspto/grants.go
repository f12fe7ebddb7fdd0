package uspto

import (
	"encoding/json"
	"fmt"

	"github.com/turtacn/grantsync/internal/domain/patent"
	"github.com/turtacn/grantsync/pkg/errors"
)

// Page is one decoded response.  Total is the API's recordTotalQuantity for
// the whole query, not the length of Patents.
type Page struct {
	Patents []patent.Patent
	Total   int
}

type envelope struct {
	Results             *[]json.RawMessage `json:"results"`
	RecordTotalQuantity *int               `json:"recordTotalQuantity"`
}

// rawGrant mirrors one element of results.  Pointers distinguish a missing
// key from an empty value.
type rawGrant struct {
	PatentNumber            *string `json:"patentNumber"`
	PatentApplicationNumber *string `json:"patentApplicationNumber"`
	AssigneeEntityName      *string `json:"assigneeEntityName"`
	FilingDate              *string `json:"filingDate"`
	GrantDate               *string `json:"grantDate"`
	InventionTitle          *string `json:"inventionTitle"`
}

// DecodePage parses a response body.  A body without results or
// recordTotalQuantity, a result missing a required key, or a malformed date
// is ErrCodeParse.
func DecodePage(body []byte) (*Page, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeParse, "grants response is not valid json")
	}
	if env.Results == nil {
		return nil, errors.Parse("grants response has no results")
	}
	if env.RecordTotalQuantity == nil {
		return nil, errors.Parse("grants response has no recordTotalQuantity")
	}

	patents := make([]patent.Patent, 0, len(*env.Results))
	for i, raw := range *env.Results {
		var g rawGrant
		if err := json.Unmarshal(raw, &g); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeParse, fmt.Sprintf("result %d is not a grant object", i))
		}
		p, err := g.toPatent()
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown, fmt.Sprintf("result %d", i))
		}
		patents = append(patents, p)
	}
	return &Page{Patents: patents, Total: *env.RecordTotalQuantity}, nil
}

func (g rawGrant) toPatent() (patent.Patent, error) {
	required := []struct {
		key string
		val *string
	}{
		{"patentNumber", g.PatentNumber},
		{"patentApplicationNumber", g.PatentApplicationNumber},
		{"filingDate", g.FilingDate},
		{"grantDate", g.GrantDate},
		{"inventionTitle", g.InventionTitle},
	}
	for _, r := range required {
		if r.val == nil {
			return patent.Patent{}, errors.Parse("grant is missing " + r.key)
		}
	}

	filed, err := patent.ParseUSDate(*g.FilingDate)
	if err != nil {
		return patent.Patent{}, err
	}
	granted, err := patent.ParseUSDate(*g.GrantDate)
	if err != nil {
		return patent.Patent{}, err
	}

	return patent.Patent{
		PatentNumber:            *g.PatentNumber,
		PatentApplicationNumber: *g.PatentApplicationNumber,
		AssigneeEntityName:      g.AssigneeEntityName,
		FilingDate:              filed,
		GrantDate:               granted,
		InventionTitle:          *g.InventionTitle,
	}, nil
}
