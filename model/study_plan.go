package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StudyPlan maps ISO dates (2006-01-02) to that day's study instructions.
type StudyPlan struct {
	Plan map[string]string `json:"plan"`
}

// EntryFor returns the instructions for the given ISO date.
func (p *StudyPlan) EntryFor(date string) (string, bool) {
	if p == nil || p.Plan == nil {
		return "", false
	}
	text, ok := p.Plan[date]
	return text, ok
}

func (p StudyPlan) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (p *StudyPlan) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*p = StudyPlan{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported study plan column type %T", value)
	}
	return json.Unmarshal(data, p)
}

func (StudyPlan) GormDataType() string {
	return "text"
}
