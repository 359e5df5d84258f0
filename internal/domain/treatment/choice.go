package treatment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/leonunesbs/injecoes-v2/internal/platform/apperror"
)

// Choice selects either a catalogue entry or a free-text value, never both.
// The zero Choice is unset.
type Choice struct {
	id     uuid.UUID
	custom string
}

func CatalogChoice(id uuid.UUID) Choice { return Choice{id: id} }

func CustomChoice(text string) Choice { return Choice{custom: strings.TrimSpace(text)} }

// NewChoice builds a Choice from the nullable id and override text pair,
// rejecting the case where both or neither are set.
func NewChoice(field string, id *uuid.UUID, other *string) (Choice, error) {
	hasID := id != nil && *id != uuid.Nil
	text := ""
	if other != nil {
		text = strings.TrimSpace(*other)
	}
	switch {
	case hasID && text != "":
		return Choice{}, apperror.Validation(field, "%s: choose a catalogue entry or free text, not both", field)
	case hasID:
		return CatalogChoice(*id), nil
	case text != "":
		if len([]rune(text)) > MaxNameLen {
			return Choice{}, apperror.Validation(field+"_other", "%s_other must be at most %d characters", field, MaxNameLen)
		}
		return CustomChoice(text), nil
	}
	return Choice{}, apperror.Validation(field, "%s is required", field)
}

// CatalogID returns the catalogue id when the choice refers to one.
func (c Choice) CatalogID() (uuid.UUID, bool) {
	return c.id, c.id != uuid.Nil
}

// Custom returns the free-text value when the choice is custom.
func (c Choice) Custom() (string, bool) {
	return c.custom, c.id == uuid.Nil && c.custom != ""
}

func (c Choice) IsZero() bool {
	return c.id == uuid.Nil && c.custom == ""
}

// Columns splits the choice into its nullable id and text columns.
func (c Choice) Columns() (*uuid.UUID, *string) {
	if id, ok := c.CatalogID(); ok {
		return &id, nil
	}
	if text, ok := c.Custom(); ok {
		return nil, &text
	}
	return nil, nil
}

// ChoiceFromColumns is the inverse of Columns.
func ChoiceFromColumns(id *uuid.UUID, other *string) Choice {
	if id != nil && *id != uuid.Nil {
		return CatalogChoice(*id)
	}
	if other != nil {
		return CustomChoice(*other)
	}
	return Choice{}
}

type choiceJSON struct {
	ID    *uuid.UUID `json:"id,omitempty"`
	Other *string    `json:"other,omitempty"`
}

func (c Choice) MarshalJSON() ([]byte, error) {
	id, other := c.Columns()
	return json.Marshal(choiceJSON{ID: id, Other: other})
}

func (c *Choice) UnmarshalJSON(data []byte) error {
	var raw choiceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ID != nil && raw.Other != nil {
		return fmt.Errorf("choice has both id and other")
	}
	*c = ChoiceFromColumns(raw.ID, raw.Other)
	return nil
}
