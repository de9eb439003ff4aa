package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Step is a single flat instruction step. Order is 1-based within its level.
type Step struct {
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// Section is a named group of steps.
type Section struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
	Order int    `json:"order"`
}

// Instruction is either a Step or a Section, never both.
type Instruction struct {
	Step    *Step
	Section *Section
}

// NewStep returns a flat step instruction.
func NewStep(text string, order int) Instruction {
	return Instruction{Step: &Step{Text: text, Order: order}}
}

// NewSection returns a sectioned instruction.
func NewSection(name string, steps []Step, order int) Instruction {
	if steps == nil {
		steps = []Step{}
	}
	return Instruction{Section: &Section{Name: name, Steps: steps, Order: order}}
}

// IsSection reports whether the instruction is a section group.
func (i Instruction) IsSection() bool {
	return i.Section != nil
}

// Order returns the 1-based position of the instruction at the top level.
func (i Instruction) Order() int {
	if i.Section != nil {
		return i.Section.Order
	}
	if i.Step != nil {
		return i.Step.Order
	}
	return 0
}

// StepCount returns the number of concrete steps the instruction holds.
func (i Instruction) StepCount() int {
	if i.Section != nil {
		return len(i.Section.Steps)
	}
	if i.Step != nil {
		return 1
	}
	return 0
}

// MarshalJSON encodes the instruction as either the step or the section object.
func (i Instruction) MarshalJSON() ([]byte, error) {
	switch {
	case i.Step != nil && i.Section != nil:
		return nil, errors.New("instruction: both step and section set")
	case i.Section != nil:
		return json.Marshal(i.Section)
	case i.Step != nil:
		return json.Marshal(i.Step)
	default:
		return nil, errors.New("instruction: empty")
	}
}

// UnmarshalJSON decodes a step object or a section object (detected by its "steps" key).
func (i *Instruction) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("instruction: %w", err)
	}
	if _, ok := probe["steps"]; ok {
		var sec Section
		if err := json.Unmarshal(data, &sec); err != nil {
			return fmt.Errorf("instruction section: %w", err)
		}
		if sec.Steps == nil {
			sec.Steps = []Step{}
		}
		*i = Instruction{Section: &sec}
		return nil
	}
	if _, ok := probe["text"]; ok {
		var st Step
		if err := json.Unmarshal(data, &st); err != nil {
			return fmt.Errorf("instruction step: %w", err)
		}
		*i = Instruction{Step: &st}
		return nil
	}
	return errors.New("instruction: neither step nor section")
}

// Instructions is an ordered instruction list stored as JSON.
type Instructions []Instruction

// Value implements the driver.Valuer interface for database serialization.
func (in Instructions) Value() (driver.Value, error) {
	if in == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Instruction(in))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (in *Instructions) Scan(value interface{}) error {
	if value == nil {
		*in = Instructions{}
		return nil
	}
	b, err := scanBytes(value)
	if err != nil {
		return errors.New("failed to scan Instructions")
	}
	if len(bytes.TrimSpace(b)) == 0 {
		*in = Instructions{}
		return nil
	}
	var list []Instruction
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*in = list
	return nil
}
