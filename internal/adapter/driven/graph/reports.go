package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/intunetools/intune-export/internal/domain/model"
)

// FetchDirectReport GETs the report's endpoint with its default OData
// parameters and follows @odata.nextLink until the dataset is exhausted. The
// column order of the returned table is the field order of the first response
// row, extended as later rows introduce fields.
func (c *Client) FetchDirectReport(ctx context.Context, def model.ReportDefinition) (*model.ReportTable, error) {
	u, err := url.Parse(c.base + "/" + string(def.Version) + def.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("build %s url: %w", def.Name, err)
	}
	q := u.Query()
	for k, v := range def.Parameters {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	builder := model.NewTableBuilder(def.Name)
	next := u.String()
	for next != "" {
		resp, err := c.get(ctx, next)
		if err != nil {
			return nil, err
		}
		next, err = decodePage(resp.Body, builder)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode %s page: %w", def.Name, err)
		}
	}

	return builder.Build(), nil
}

// decodePage walks one response object token by token. encoding/json maps do
// not preserve key order, and the export columns must appear in the order the
// API emitted them, so rows are decoded from the raw token stream instead.
func decodePage(r io.Reader, builder *model.TableBuilder) (next string, err error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return "", err
	}

	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return "", err
		}

		switch key {
		case "@odata.nextLink":
			if err := dec.Decode(&next); err != nil {
				return "", fmt.Errorf("decode nextLink: %w", err)
			}
		case "value":
			if err := decodeRows(dec, builder); err != nil {
				return "", err
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return "", fmt.Errorf("skip field %q: %w", key, err)
			}
		}
	}

	return next, nil
}

func decodeRows(dec *json.Decoder, builder *model.TableBuilder) error {
	if err := expectDelim(dec, '['); err != nil {
		return err
	}
	for dec.More() {
		fields, order, err := decodeRow(dec)
		if err != nil {
			return err
		}
		builder.Append(fields, order)
	}
	_, err := dec.Token() // closing ']'
	return err
}

func decodeRow(dec *json.Decoder) (map[string]string, []string, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, nil, err
	}

	fields := map[string]string{}
	var order []string
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return nil, nil, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("decode field %q: %w", key, err)
		}
		fields[key] = flattenValue(raw)
		order = append(order, key)
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return nil, nil, err
	}

	return fields, order, nil
}

// flattenValue renders a JSON value as the cell string: strings unquoted,
// null empty, everything else (numbers, booleans, nested objects and arrays)
// as compact JSON.
func flattenValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err == nil {
		return buf.String()
	}
	return string(trimmed)
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return s, nil
}
