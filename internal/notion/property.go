package notion

import (
	"encoding/json"
	"strings"
	"time"

	"cratekeeper/internal/constants"
)

// Kind identifies the declared type of a database property.
type Kind string

const (
	KindTitle       Kind = "title"
	KindRichText    Kind = "rich_text"
	KindURL         Kind = "url"
	KindCheckbox    Kind = "checkbox"
	KindNumber      Kind = "number"
	KindDate        Kind = "date"
	KindSelect      Kind = "select"
	KindMultiSelect Kind = "multi_select"
	KindRelation    Kind = "relation"
)

// Property is one typed page property. The API represents each type with a
// different JSON shape; this variant keeps a single Kind discriminator plus
// the fields it can populate, so callers branch on Kind instead of digging
// through nested wire structures.
type Property struct {
	Kind Kind

	Text     string // title, rich_text, url, select
	Checkbox bool
	Number   float64
	Date     time.Time
	Values   []string // multi_select option names, relation page ids
}

func Title(text string) Property    { return Property{Kind: KindTitle, Text: text} }
func RichText(text string) Property { return Property{Kind: KindRichText, Text: text} }
func URL(u string) Property         { return Property{Kind: KindURL, Text: u} }
func Checkbox(v bool) Property      { return Property{Kind: KindCheckbox, Checkbox: v} }
func Number(n float64) Property     { return Property{Kind: KindNumber, Number: n} }
func Date(t time.Time) Property     { return Property{Kind: KindDate, Date: t} }
func Select(name string) Property   { return Property{Kind: KindSelect, Text: name} }

func MultiSelect(names ...string) Property {
	return Property{Kind: KindMultiSelect, Values: names}
}

func Relation(pageIDs ...string) Property {
	return Property{Kind: KindRelation, Values: pageIDs}
}

// IsEmpty reports whether the property carries no value. A false checkbox
// counts as empty so merges treat "never checked" as absent.
func (p Property) IsEmpty() bool {
	switch p.Kind {
	case KindTitle, KindRichText, KindURL, KindSelect:
		return p.Text == ""
	case KindCheckbox:
		return !p.Checkbox
	case KindNumber:
		return p.Number == 0
	case KindDate:
		return p.Date.IsZero()
	case KindMultiSelect, KindRelation:
		return len(p.Values) == 0
	}
	return true
}

type wireRichText struct {
	PlainText string `json:"plain_text,omitempty"`
	Text      *struct {
		Content string `json:"content"`
	} `json:"text,omitempty"`
}

func (rt wireRichText) content() string {
	if rt.PlainText != "" {
		return rt.PlainText
	}
	if rt.Text != nil {
		return rt.Text.Content
	}
	return ""
}

type wireOption struct {
	Name string `json:"name"`
}

type wireRef struct {
	ID string `json:"id"`
}

type wireDate struct {
	Start string `json:"start"`
}

// wireProperty covers every shape the API returns for the supported kinds.
type wireProperty struct {
	Type        string         `json:"type"`
	Title       []wireRichText `json:"title"`
	RichText    []wireRichText `json:"rich_text"`
	URL         *string        `json:"url"`
	Checkbox    *bool          `json:"checkbox"`
	Number      *float64       `json:"number"`
	Date        *wireDate      `json:"date"`
	Select      *wireOption    `json:"select"`
	MultiSelect []wireOption   `json:"multi_select"`
	Relation    []wireRef      `json:"relation"`
}

func richTextPayload(text string) []map[string]any {
	if text == "" {
		return []map[string]any{}
	}
	// Rich text segments have a hard length cap; anything longer is
	// truncated rather than rejected by the API.
	if len(text) > constants.NotionTextFieldCap {
		text = text[:constants.NotionTextFieldCap]
	}
	return []map[string]any{
		{"text": map[string]any{"content": text}},
	}
}

// MarshalJSON emits the write-side wire shape for the property's kind.
func (p Property) MarshalJSON() ([]byte, error) {
	var payload any
	switch p.Kind {
	case KindTitle:
		payload = map[string]any{"title": richTextPayload(p.Text)}
	case KindRichText:
		payload = map[string]any{"rich_text": richTextPayload(p.Text)}
	case KindURL:
		if p.Text == "" {
			payload = map[string]any{"url": nil}
		} else {
			payload = map[string]any{"url": p.Text}
		}
	case KindCheckbox:
		payload = map[string]any{"checkbox": p.Checkbox}
	case KindNumber:
		payload = map[string]any{"number": p.Number}
	case KindDate:
		if p.Date.IsZero() {
			payload = map[string]any{"date": nil}
		} else {
			payload = map[string]any{"date": map[string]any{"start": p.Date.Format(time.RFC3339)}}
		}
	case KindSelect:
		if p.Text == "" {
			payload = map[string]any{"select": nil}
		} else {
			payload = map[string]any{"select": map[string]any{"name": p.Text}}
		}
	case KindMultiSelect:
		opts := make([]map[string]any, 0, len(p.Values))
		for _, name := range p.Values {
			opts = append(opts, map[string]any{"name": name})
		}
		payload = map[string]any{"multi_select": opts}
	case KindRelation:
		refs := make([]map[string]any, 0, len(p.Values))
		for _, id := range p.Values {
			refs = append(refs, map[string]any{"id": id})
		}
		payload = map[string]any{"relation": refs}
	default:
		payload = map[string]any{}
	}
	return json.Marshal(payload)
}

// UnmarshalJSON reads the response-side wire shape, using the declared type
// discriminator to select the variant. Unsupported property types decode to
// a zero Property so callers can skip them.
func (p *Property) UnmarshalJSON(data []byte) error {
	var w wireProperty
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch Kind(w.Type) {
	case KindTitle:
		*p = Title(joinRichText(w.Title))
	case KindRichText:
		*p = RichText(joinRichText(w.RichText))
	case KindURL:
		if w.URL != nil {
			*p = URL(*w.URL)
		} else {
			*p = URL("")
		}
	case KindCheckbox:
		*p = Checkbox(w.Checkbox != nil && *w.Checkbox)
	case KindNumber:
		if w.Number != nil {
			*p = Number(*w.Number)
		} else {
			*p = Property{Kind: KindNumber}
		}
	case KindDate:
		prop := Property{Kind: KindDate}
		if w.Date != nil {
			if t, err := parseDate(w.Date.Start); err == nil {
				prop.Date = t
			}
		}
		*p = prop
	case KindSelect:
		if w.Select != nil {
			*p = Select(w.Select.Name)
		} else {
			*p = Select("")
		}
	case KindMultiSelect:
		names := make([]string, 0, len(w.MultiSelect))
		for _, o := range w.MultiSelect {
			names = append(names, o.Name)
		}
		*p = MultiSelect(names...)
	case KindRelation:
		ids := make([]string, 0, len(w.Relation))
		for _, r := range w.Relation {
			ids = append(ids, r.ID)
		}
		*p = Relation(ids...)
	default:
		*p = Property{}
	}
	return nil
}

func joinRichText(segments []wireRichText) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.content())
	}
	return b.String()
}

// parseDate accepts both date-only and full timestamp starts.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
