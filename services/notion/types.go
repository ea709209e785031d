// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package notion implements the remote store the planner runs against:
// wire types for the Notion 2022-06-28 API, a bounded filter builder,
// and an HTTP client with a fixed-wait retry policy.
package notion

import "encoding/json"

// PropertyType identifies the variant carried by a Property.
type PropertyType string

const (
	TypeTitle       PropertyType = "title"
	TypeRichText    PropertyType = "rich_text"
	TypeNumber      PropertyType = "number"
	TypeSelect      PropertyType = "select"
	TypeMultiSelect PropertyType = "multi_select"
	TypeDate        PropertyType = "date"
	TypeCheckbox    PropertyType = "checkbox"
	TypeURL         PropertyType = "url"
	TypeEmail       PropertyType = "email"
	TypeStatus      PropertyType = "status"
	TypeRelation    PropertyType = "relation"

	// Read-only variants. The API returns these but rejects them in
	// create/update requests; the payload builder never copies them.
	TypeFormula        PropertyType = "formula"
	TypeRollup         PropertyType = "rollup"
	TypeCreatedBy      PropertyType = "created_by"
	TypeCreatedTime    PropertyType = "created_time"
	TypeLastEditedBy   PropertyType = "last_edited_by"
	TypeLastEditedTime PropertyType = "last_edited_time"
)

// ReadOnly reports whether the variant cannot appear in a write request.
func (t PropertyType) ReadOnly() bool {
	switch t {
	case TypeFormula, TypeRollup, TypeCreatedBy, TypeCreatedTime,
		TypeLastEditedBy, TypeLastEditedTime:
		return true
	}
	return false
}

// RichText is one fragment of a title or rich_text value. Responses carry
// annotations and hrefs we never write back; only the text content and the
// computed plain_text survive a round trip through this struct.
type RichText struct {
	Text      TextContent `json:"text"`
	PlainText string      `json:"plain_text,omitempty"`
}

type TextContent struct {
	Content string `json:"content"`
}

// NewRichText builds a single-fragment rich text value for a write request.
func NewRichText(content string) []RichText {
	return []RichText{{Text: TextContent{Content: content}}}
}

// SelectOption is a select or multi_select choice. Writes identify options
// by name only; the option id and color are server-owned.
type SelectOption struct {
	Name string `json:"name"`
}

// StatusOption is the value of a status property.
type StatusOption struct {
	Name string `json:"name"`
}

// DateRange is a date property value. Start is required, End optional.
// The API annotates responses with a time_zone key; it is read-only and
// deliberately absent here so a copied range is valid in a create request.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// RelationRef points at another page.
type RelationRef struct {
	ID string `json:"id"`
}

// Property is one database field value, a closed variant discriminated by
// Type. Exactly one payload field is populated for writable variants;
// read-only variants keep only the Type tag, which is all the payload
// builder needs to exclude them.
type Property struct {
	Type PropertyType `json:"type,omitempty"`

	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Number      *float64       `json:"number,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Date        *DateRange     `json:"date,omitempty"`
	Checkbox    *bool          `json:"checkbox,omitempty"`
	URL         string         `json:"url,omitempty"`
	Email       string         `json:"email,omitempty"`
	Status      *StatusOption  `json:"status,omitempty"`
	Relation    []RelationRef  `json:"relation,omitempty"`
}

// PlainText flattens a title or rich_text property to a single string.
// Response fragments carry plain_text; fragments built locally only carry
// text content. Returns "" for any other variant or an empty value.
func (p Property) PlainText() string {
	var fragments []RichText
	switch p.Type {
	case TypeTitle:
		fragments = p.Title
	case TypeRichText:
		fragments = p.RichText
	default:
		return ""
	}
	out := ""
	for _, f := range fragments {
		if f.PlainText != "" {
			out += f.PlainText
		} else {
			out += f.Text.Content
		}
	}
	return out
}

// MultiSelectNames returns the selected option names, nil when the property
// is not a multi_select or has no selection.
func (p Property) MultiSelectNames() []string {
	if len(p.MultiSelect) == 0 {
		return nil
	}
	names := make([]string, 0, len(p.MultiSelect))
	for _, opt := range p.MultiSelect {
		names = append(names, opt.Name)
	}
	return names
}

// Page is one record in a database.
type Page struct {
	ID         string              `json:"id"`
	Properties map[string]Property `json:"properties"`
}

// Title returns the plain text of the page's title property, "" if the
// property is missing or empty.
func (pg Page) Title(property string) string {
	return pg.Properties[property].PlainText()
}

// queryRequest is the body of a database query call.
type queryRequest struct {
	Filter      json.RawMessage `json:"filter,omitempty"`
	StartCursor string          `json:"start_cursor,omitempty"`
}

// queryResponse is one page of query results.
type queryResponse struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// createPageRequest is the body of a page create call.
type createPageRequest struct {
	Parent     pageParent          `json:"parent"`
	Properties map[string]Property `json:"properties"`
}

type pageParent struct {
	DatabaseID string `json:"database_id"`
}

// databaseResponse carries the slice of a database retrieve call we care
// about: the property schema keyed by name.
type databaseResponse struct {
	Properties map[string]json.RawMessage `json:"properties"`
}

// apiError is the error envelope of a non-2xx response.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
