package model

import (
	"database/sql/driver"
	"encoding/json"
)

// ItemType classifies a framework item and determines its maximum score.
type ItemType string

const (
	ItemTypeBinary    ItemType = "binary"
	ItemTypeScale3    ItemType = "scale_3"
	ItemTypeScale5    ItemType = "scale_5"
	ItemTypeNAAllowed ItemType = "na_allowed"
)

// MaxScore returns the type-dependent maximum raw score per item. Unknown
// types fall back to 1.
func (t ItemType) MaxScore() float64 {
	switch t {
	case ItemTypeBinary:
		return 1
	case ItemTypeScale3:
		return 3
	case ItemTypeScale5:
		return 5
	case ItemTypeNAAllowed:
		return 5
	default:
		return 1
	}
}

// FrameworkItem is one scored criterion within a section.
type FrameworkItem struct {
	ID         string   `json:"id"`
	Title      string   `json:"title,omitempty"`
	Type       ItemType `json:"type"`
	IsCritical bool     `json:"isCritical,omitempty"`
}

// FrameworkSection groups items under a weight expressed in percent.
type FrameworkSection struct {
	ID     string          `json:"id"`
	Title  string          `json:"title,omitempty"`
	Weight float64         `json:"weight"`
	Items  []FrameworkItem `json:"items"`
}

// Framework is the read-only scoring rubric a job evaluates against.
type Framework struct {
	ID           string             `json:"id"`
	Name         string             `json:"name,omitempty"`
	PassingScore float64            `json:"passingScore"`
	Sections     []FrameworkSection `json:"sections"`
}

// FrameworkDocument wraps a Framework for storage as a JSON column.
type FrameworkDocument Framework

// Value implements driver.Valuer.
func (d FrameworkDocument) Value() (driver.Value, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (d *FrameworkDocument) Scan(value interface{}) error {
	return scanJSON(value, d, "FrameworkDocument")
}
