package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// extractXLSX flattens workbook cells into tab-separated rows, one sheet
// after another. Shared strings are resolved; formulas contribute their
// cached values.
func extractXLSX(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open xlsx archive: %w", err)
	}

	shared, err := readSharedStrings(reader)
	if err != nil {
		return "", err
	}

	var sheetNames []string
	for _, file := range reader.File {
		if strings.HasPrefix(file.Name, "xl/worksheets/sheet") && strings.HasSuffix(file.Name, ".xml") {
			sheetNames = append(sheetNames, file.Name)
		}
	}
	sort.Strings(sheetNames)

	var sb strings.Builder
	for _, name := range sheetNames {
		text, err := readSheet(reader, name, shared)
		if err != nil {
			return "", err
		}
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(text)
	}

	return sb.String(), nil
}

type sharedStringsXML struct {
	Items []struct {
		Text  string `xml:"t"`
		Parts []struct {
			Text string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

func readSharedStrings(reader *zip.Reader) ([]string, error) {
	content, err := readZipFile(reader, "xl/sharedStrings.xml")
	if err != nil || content == nil {
		return nil, err
	}

	var parsed sharedStringsXML
	if err := xml.Unmarshal(content, &parsed); err != nil {
		return nil, fmt.Errorf("parse sharedStrings.xml: %w", err)
	}

	out := make([]string, len(parsed.Items))
	for i, item := range parsed.Items {
		if item.Text != "" {
			out[i] = item.Text
			continue
		}
		var sb strings.Builder
		for _, part := range item.Parts {
			sb.WriteString(part.Text)
		}
		out[i] = sb.String()
	}
	return out, nil
}

type sheetXML struct {
	Rows []struct {
		Cells []struct {
			Type  string `xml:"t,attr"`
			Value string `xml:"v"`
			// Inline strings keep their text under is/t.
			Inline struct {
				Text string `xml:"t"`
			} `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

func readSheet(reader *zip.Reader, name string, shared []string) (string, error) {
	content, err := readZipFile(reader, name)
	if err != nil {
		return "", err
	}
	if content == nil {
		return "", nil
	}

	var parsed sheetXML
	if err := xml.Unmarshal(content, &parsed); err != nil {
		return "", fmt.Errorf("parse %s: %w", name, err)
	}

	var sb strings.Builder
	for _, row := range parsed.Rows {
		values := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			switch cell.Type {
			case "s":
				idx, convErr := strconv.Atoi(cell.Value)
				if convErr == nil && idx >= 0 && idx < len(shared) {
					values = append(values, shared[idx])
				}
			case "inlineStr":
				values = append(values, cell.Inline.Text)
			default:
				values = append(values, cell.Value)
			}
		}
		line := strings.TrimSpace(strings.Join(values, "\t"))
		if line == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(line)
	}

	return sb.String(), nil
}

func readZipFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return content, nil
	}
	return nil, nil
}
