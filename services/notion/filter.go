// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package notion

// Filter is one node of a query predicate tree: either a single property
// condition or an and/or composition. The API rejects and/or nesting deeper
// than two levels, so composite predicates must be shaped as an "or" of
// "and" groups rather than arbitrary trees; the builders here compose flat
// groups and leave that restriction to the caller.
type Filter struct {
	Property string           `json:"property,omitempty"`
	Select   *selectCondition `json:"select,omitempty"`
	Status   *statusCondition `json:"status,omitempty"`
	Date     *dateCondition   `json:"date,omitempty"`

	And []Filter `json:"and,omitempty"`
	Or  []Filter `json:"or,omitempty"`
}

type selectCondition struct {
	Equals       string `json:"equals,omitempty"`
	DoesNotEqual string `json:"does_not_equal,omitempty"`
}

type statusCondition struct {
	Equals       string `json:"equals,omitempty"`
	DoesNotEqual string `json:"does_not_equal,omitempty"`
}

type dateCondition struct {
	OnOrAfter  string `json:"on_or_after,omitempty"`
	OnOrBefore string `json:"on_or_before,omitempty"`
	Before     string `json:"before,omitempty"`
}

// SelectEquals matches pages whose select property has the given value.
func SelectEquals(property, value string) Filter {
	return Filter{Property: property, Select: &selectCondition{Equals: value}}
}

// SelectNotEquals matches pages whose select property differs from value.
func SelectNotEquals(property, value string) Filter {
	return Filter{Property: property, Select: &selectCondition{DoesNotEqual: value}}
}

// StatusNotEquals matches pages whose status property differs from value.
func StatusNotEquals(property, value string) Filter {
	return Filter{Property: property, Status: &statusCondition{DoesNotEqual: value}}
}

// DateOnOrAfter matches pages whose date property starts at or after the
// given ISO 8601 instant.
func DateOnOrAfter(property, iso string) Filter {
	return Filter{Property: property, Date: &dateCondition{OnOrAfter: iso}}
}

// DateOnOrBefore matches pages whose date property starts at or before the
// given ISO 8601 instant.
func DateOnOrBefore(property, iso string) Filter {
	return Filter{Property: property, Date: &dateCondition{OnOrBefore: iso}}
}

// DateBefore matches pages whose date property starts strictly before the
// given ISO 8601 instant.
func DateBefore(property, iso string) Filter {
	return Filter{Property: property, Date: &dateCondition{Before: iso}}
}

// And composes conditions that must all hold.
func And(conditions ...Filter) Filter {
	return Filter{And: conditions}
}

// Or composes conditions of which at least one must hold.
func Or(conditions ...Filter) Filter {
	return Filter{Or: conditions}
}
