// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package planner

import "github.com/imoremu/AutoNotion/services/notion"

// copyWritableProperties copies fields from a source page that exist in the
// target schema, re-emitting only the writable sub-structure of each value.
// Read-only property types and server-computed metadata (option ids, rich
// text annotations, date time_zone) never survive the copy; a create
// request containing them would be rejected.
func copyWritableProperties(source map[string]notion.Property, schema map[string]struct{}) map[string]notion.Property {
	out := make(map[string]notion.Property)

	for name, prop := range source {
		if _, ok := schema[name]; !ok {
			continue
		}
		if prop.Type.ReadOnly() {
			continue
		}

		switch prop.Type {
		case notion.TypeTitle:
			if len(prop.Title) > 0 {
				out[name] = notion.Property{Type: notion.TypeTitle, Title: rewriteText(prop.Title)}
			}
		case notion.TypeRichText:
			if len(prop.RichText) > 0 {
				out[name] = notion.Property{Type: notion.TypeRichText, RichText: rewriteText(prop.RichText)}
			}
		case notion.TypeNumber:
			if prop.Number != nil {
				out[name] = notion.Property{Type: notion.TypeNumber, Number: prop.Number}
			}
		case notion.TypeSelect:
			if prop.Select != nil {
				out[name] = notion.Property{Type: notion.TypeSelect, Select: &notion.SelectOption{Name: prop.Select.Name}}
			}
		case notion.TypeMultiSelect:
			if len(prop.MultiSelect) > 0 {
				options := make([]notion.SelectOption, 0, len(prop.MultiSelect))
				for _, opt := range prop.MultiSelect {
					options = append(options, notion.SelectOption{Name: opt.Name})
				}
				out[name] = notion.Property{Type: notion.TypeMultiSelect, MultiSelect: options}
			}
		case notion.TypeDate:
			if prop.Date != nil {
				out[name] = notion.Property{Type: notion.TypeDate, Date: &notion.DateRange{Start: prop.Date.Start, End: prop.Date.End}}
			}
		case notion.TypeCheckbox:
			if prop.Checkbox != nil {
				out[name] = notion.Property{Type: notion.TypeCheckbox, Checkbox: prop.Checkbox}
			}
		case notion.TypeURL:
			if prop.URL != "" {
				out[name] = notion.Property{Type: notion.TypeURL, URL: prop.URL}
			}
		case notion.TypeEmail:
			if prop.Email != "" {
				out[name] = notion.Property{Type: notion.TypeEmail, Email: prop.Email}
			}
		}
		// Status and relation are handled explicitly by the payload
		// builder; everything else is left behind.
	}

	return out
}

func rewriteText(fragments []notion.RichText) []notion.RichText {
	out := make([]notion.RichText, 0, len(fragments))
	for _, f := range fragments {
		content := f.Text.Content
		if content == "" {
			content = f.PlainText
		}
		out = append(out, notion.RichText{Text: notion.TextContent{Content: content}})
	}
	return out
}

// buildPagePayload assembles the property map for a new registry page:
// writable fields copied from the source, the title overwritten with name,
// a back-reference relation to the source task, the planned time for today
// when supplied, and the inherited original-schedule field stripped.
func buildPagePayload(source notion.Page, name string, planned *notion.DateRange, schema map[string]struct{}) map[string]notion.Property {
	props := copyWritableProperties(source.Properties, schema)

	props[fieldName] = notion.Property{Type: notion.TypeTitle, Title: notion.NewRichText(name)}

	if _, ok := schema[fieldTask]; ok {
		// A carried-over registry item already links to its task; keep
		// that link. A template links to itself.
		if src := source.Properties[fieldTask]; len(src.Relation) > 0 {
			props[fieldTask] = notion.Property{Type: notion.TypeRelation, Relation: src.Relation}
		} else {
			props[fieldTask] = notion.Property{Type: notion.TypeRelation, Relation: []notion.RelationRef{{ID: source.ID}}}
		}
	}

	if planned != nil {
		props[fieldPlanned] = notion.Property{Type: notion.TypeDate, Date: planned}
	}

	// The original occurrence time must not follow the task into today.
	delete(props, fieldSchedule)

	return props
}
