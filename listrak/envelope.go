package listrak

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

const soapNamespace = "http://schemas.xmlsoap.org/soap/envelope/"

// requestTimeFormat is the dateTime form StartDate/EndDate parameters take
// on the wire. The service interprets them as UTC.
const requestTimeFormat = "2006-01-02T15:04:05"

// buildEnvelope renders one SOAP request: WS-user credentials in the header,
// the operation with its parameters in the body. Parameters are written in
// sorted order so envelopes are deterministic.
func buildEnvelope(op, username, password string, params map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<soap:Envelope xmlns:soap="` + soapNamespace + `">`)
	buf.WriteString(`<soap:Header><WSUser xmlns="` + Namespace + `">`)
	writeElement(&buf, "UserName", username)
	writeElement(&buf, "Password", password)
	buf.WriteString(`</WSUser></soap:Header>`)
	buf.WriteString(`<soap:Body><` + op + ` xmlns="` + Namespace + `">`)
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		value, err := formatValue(params[k])
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		writeElement(&buf, k, value)
	}
	buf.WriteString(`</` + op + `></soap:Body></soap:Envelope>`)
	return buf.Bytes(), nil
}

func writeElement(buf *bytes.Buffer, name, value string) {
	buf.WriteString("<" + name + ">")
	xml.EscapeText(buf, []byte(value))
	buf.WriteString("</" + name + ">")
}

func formatValue(v interface{}) (string, error) {
	switch value := v.(type) {
	case string:
		return value, nil
	case time.Time:
		return value.UTC().Format(requestTimeFormat), nil
	case bool:
		return strconv.FormatBool(value), nil
	case int:
		return strconv.Itoa(value), nil
	case int64:
		return strconv.FormatInt(value, 10), nil
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported parameter type %T", v)
	}
}

// parseResponse scans a response envelope for the {op}Result element and
// decodes it generically. A SOAP fault becomes an error carrying the fault
// string; a response with neither is malformed.
func parseResponse(body []byte, op string) (interface{}, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	resultName := op + "Result"
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("response is missing %s", resultName)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid response xml %w", err)
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case resultName:
			return parseNode(decoder, start)
		case "Fault":
			return nil, parseFault(decoder, start)
		}
	}
}

// parseNode decodes the element the decoder is positioned on. Elements with
// children become maps; a repeated child name becomes a list; leaf elements
// become scalars via decodeScalar.
func parseNode(decoder *xml.Decoder, start xml.StartElement) (interface{}, error) {
	var text strings.Builder
	var children map[string]interface{}
	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid element %s %w", start.Name.Local, err)
		}
		switch t := token.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			value, err := parseNode(decoder, t)
			if err != nil {
				return nil, err
			}
			if children == nil {
				children = make(map[string]interface{})
			}
			name := t.Name.Local
			switch existing := children[name].(type) {
			case nil:
				children[name] = value
			case []interface{}:
				children[name] = append(existing, value)
			default:
				children[name] = []interface{}{existing, value}
			}
		case xml.EndElement:
			if children != nil {
				return children, nil
			}
			return decodeScalar(strings.TrimSpace(text.String())), nil
		}
	}
}

func parseFault(decoder *xml.Decoder, start xml.StartElement) error {
	node, err := parseNode(decoder, start)
	if err != nil {
		return fmt.Errorf("invalid soap fault %w", err)
	}
	if m, ok := node.(map[string]interface{}); ok {
		if s, ok := m["faultstring"].(string); ok && s != "" {
			return fmt.Errorf("soap fault: %s", s)
		}
	}
	return fmt.Errorf("soap fault")
}

// decodeScalar interprets leaf text. Values in dateTime lexical form become
// time.Time (UTC assumed when no zone is given), plain integers and booleans
// are typed, everything else stays a string. An empty element is nil.
func decodeScalar(s string) interface{} {
	if s == "" {
		return nil
	}
	if t, ok := parseDateTime(s); ok {
		return t
	}
	if isPlainInt(s) {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	}
	if s == "true" {
		return true
	}
	if s == "false" {
		return false
	}
	return s
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func parseDateTime(s string) (time.Time, bool) {
	if len(s) < 10 || s[4] != '-' || s[7] != '-' {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// isPlainInt guards the integer heuristic: digits only, no leading zero, so
// identifiers survive but zero-padded strings stay strings.
func isPlainInt(s string) bool {
	if s == "0" {
		return true
	}
	if s == "" || s[0] == '0' {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
