package enums

import "fmt"

// PartCondition maps to the part_condition enum in Postgres.
type PartCondition string

const (
	ConditionNew         PartCondition = "new"
	ConditionUsed        PartCondition = "used"
	ConditionRefurbished PartCondition = "refurbished"
	ConditionAny         PartCondition = "any"
)

var validPartConditions = []PartCondition{
	ConditionNew,
	ConditionUsed,
	ConditionRefurbished,
	ConditionAny,
}

// IsValid checks whether the value matches the canonical enum.
func (c PartCondition) IsValid() bool {
	for _, candidate := range validPartConditions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParsePartCondition converts raw strings into PartCondition.
func ParsePartCondition(value string) (PartCondition, error) {
	for _, candidate := range validPartConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid part condition %q", value)
}
