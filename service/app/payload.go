package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const multipartMemory = 10 << 20

var iconExtensions = []string{".jpg", ".jpeg", ".png", ".svg"}

// IconAccept is the accept attribute for icon file inputs.
var IconAccept = strings.Join(iconExtensions, ",")

// Icon is an uploaded icon file.
type Icon struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (i *Icon) Ext() string {
	return strings.ToLower(filepath.Ext(i.Filename))
}

func CheckIconFilename(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(iconExtensions, ext) {
		return fmt.Errorf("%w: %q", ErrUnsupportedIcon, filepath.Base(filename))
	}
	return nil
}

// Payload is the body of an add or update request. A nil Icon means the plain
// form; otherwise the request is multipart and Fields.Icon is not sent.
type Payload struct {
	Fields NewApp
	Icon   *Icon
}

func PlainPayload(fields NewApp) Payload {
	return Payload{Fields: fields}
}

func MultipartPayload(fields NewApp, icon *Icon) Payload {
	fields.Icon = ""
	return Payload{Fields: fields, Icon: icon}
}

func (p Payload) IsMultipart() bool {
	return p.Icon != nil
}

type FormField struct {
	Key   string
	Value string
}

// MultipartFields lists the text parts sent alongside the icon file.
func (p Payload) MultipartFields() []FormField {
	return []FormField{
		{Key: "name", Value: p.Fields.Name},
		{Key: "url", Value: p.Fields.URL},
		{Key: "isPublic", Value: strconv.FormatBool(p.Fields.IsPublic)},
	}
}

// Encode returns the request body and its content type.
func (p Payload) Encode() ([]byte, string, error) {
	if !p.IsMultipart() {
		body, err := json.Marshal(p.Fields)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode app: %w", err)
		}
		return body, "application/json", nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := writeIconPart(mw, p.Icon); err != nil {
		return nil, "", err
	}
	for _, f := range p.MultipartFields() {
		if err := mw.WriteField(f.Key, f.Value); err != nil {
			return nil, "", fmt.Errorf("failed to write %s field: %w", f.Key, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return buf.Bytes(), mw.FormDataContentType(), nil
}

func writeIconPart(mw *multipart.Writer, icon *Icon) error {
	contentType := icon.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(icon.Ext())
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="icon"; filename=%q`, filepath.Base(icon.Filename)))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create icon part: %w", err)
	}
	if _, err := part.Write(icon.Data); err != nil {
		return fmt.Errorf("failed to write icon part: %w", err)
	}
	return nil
}

// DecodePayload reads an add request. Multipart and urlencoded bodies are
// read as forms, anything else as JSON. Omitted fields take the blank
// template values.
func DecodePayload(r *http.Request, maxIconSize int64) (Payload, error) {
	return DecodePayloadOnto(r, maxIconSize, NewAppTemplate())
}

// DecodePayloadOnto reads an add or update request over base: fields the
// request omits keep their base values.
func DecodePayloadOnto(r *http.Request, maxIconSize int64, base NewApp) (Payload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return Payload{}, fmt.Errorf("%w: malformed multipart body: %v", ErrInvalidApp, err)
		}
		return decodeForm(r, maxIconSize, base)
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return Payload{}, fmt.Errorf("%w: malformed form body: %v", ErrInvalidApp, err)
		}
		return decodeForm(r, maxIconSize, base)
	default:
		return decodeJSON(r.Body, base)
	}
}

// jsonApp is the JSON request body. isPublic is kept raw so numbers and
// strings go through the same parsing as form values.
type jsonApp struct {
	Name     *string         `json:"name"`
	URL      *string         `json:"url"`
	Icon     *string         `json:"icon"`
	IsPublic json.RawMessage `json:"isPublic"`
}

func decodeJSON(body io.Reader, base NewApp) (Payload, error) {
	var in jsonApp
	if err := json.NewDecoder(body).Decode(&in); err != nil {
		return Payload{}, fmt.Errorf("%w: malformed JSON body: %v", ErrInvalidApp, err)
	}

	fields := base
	if in.Name != nil {
		fields.Name = *in.Name
	}
	if in.URL != nil {
		fields.URL = *in.URL
	}
	if in.Icon != nil {
		fields.Icon = *in.Icon
	}

	if raw := bytes.TrimSpace(in.IsPublic); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		value := string(raw)
		if raw[0] == '"' {
			if err := json.Unmarshal(raw, &value); err != nil {
				return Payload{}, fmt.Errorf("%w: malformed isPublic: %v", ErrInvalidApp, err)
			}
		}
		isPublic, err := parseVisibility(value, fields.IsPublic)
		if err != nil {
			return Payload{}, err
		}
		fields.IsPublic = isPublic
	}

	return PlainPayload(fields), nil
}

func decodeForm(r *http.Request, maxIconSize int64, base NewApp) (Payload, error) {
	fields := base
	if values := r.Form["name"]; len(values) > 0 {
		fields.Name = values[0]
	}
	if values := r.Form["url"]; len(values) > 0 {
		fields.URL = values[0]
	}

	isPublic, err := parseVisibility(r.FormValue("isPublic"), base.IsPublic)
	if err != nil {
		return Payload{}, err
	}
	fields.IsPublic = isPublic

	icon, err := ReadIconFile(r, "icon", maxIconSize)
	if err != nil {
		return Payload{}, err
	}
	if icon != nil {
		return MultipartPayload(fields, icon), nil
	}

	if values := r.Form["icon"]; len(values) > 0 {
		fields.Icon = values[0]
	}
	return PlainPayload(fields), nil
}

// ReadIconFile returns the uploaded file under key, or nil when the request
// carries none. The request form must already be parsed.
func ReadIconFile(r *http.Request, key string, maxIconSize int64) (*Icon, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	file, header, err := r.FormFile(key)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable icon file: %v", ErrInvalidApp, err)
	}
	defer file.Close()

	if err := CheckIconFilename(header.Filename); err != nil {
		return nil, err
	}
	if header.Size > maxIconSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrIconTooLarge, header.Size, maxIconSize)
	}

	data, err := io.ReadAll(io.LimitReader(file, maxIconSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read icon file: %w", err)
	}
	if int64(len(data)) > maxIconSize {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrIconTooLarge, maxIconSize)
	}

	return &Icon{
		Filename:    filepath.Base(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// ParseVisibility accepts the select values 1/0 and the multipart strings
// true/false. An empty value keeps the template default.
func ParseVisibility(value string) (bool, error) {
	return parseVisibility(value, NewAppTemplate().IsPublic)
}

func parseVisibility(value string, fallback bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return fallback, nil
	case "1", "true", "on":
		return true, nil
	case "0", "false", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%w: isPublic must be true or false, got %q", ErrInvalidApp, value)
	}
}
