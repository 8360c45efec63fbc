package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/fetch/packages/core/env"
	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
)

// requestFlags describe one request on the command line.
type requestFlags struct {
	method  string
	headers []string
	data    string
	json    []string
	form    []string
	query   []string
	vars    []string
	envFile string
}

func splitHeader(s string) (string, string, error) {
	name, value, ok := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid header %q (use \"Name: value\")", s)
	}
	return name, strings.TrimSpace(value), nil
}

func splitPair(kind, s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid %s %q (use key=value)", kind, s)
	}
	return key, value, nil
}

// jsonValues builds a JSON object from key=value and key:=<raw json> items.
func jsonValues(items []string) (fetchhttp.Values, error) {
	values := fetchhttp.Values{}
	for _, item := range items {
		if key, raw, ok := strings.Cut(item, ":="); ok && key != "" && !strings.Contains(key, "=") {
			var v any
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return nil, fmt.Errorf("invalid JSON value for %s: %w", key, err)
			}
			values[key] = v
			continue
		}
		key, value, err := splitPair("JSON field", item)
		if err != nil {
			return nil, err
		}
		values[key] = value
	}
	return values, nil
}

// formData builds a form from key=value fields and key=@path files.
func formData(items []string) (*fetchhttp.FormData, error) {
	form := fetchhttp.NewFormData()
	for _, item := range items {
		key, value, err := splitPair("form field", item)
		if err != nil {
			return nil, err
		}
		if path, ok := strings.CutPrefix(value, "@"); ok {
			if err := form.AddFile(key, path); err != nil {
				return nil, err
			}
			continue
		}
		form.AddField(key, value)
	}
	return form, nil
}

// dataBody reads -d: literal text, or a file when prefixed with @. File
// contents are expanded like literal text.
func dataBody(data string, exp *env.Expander) (fetchhttp.Body, error) {
	path, ok := strings.CutPrefix(data, "@")
	if !ok {
		return fetchhttp.Raw(data), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &fetchhttp.FileAccessError{Path: path, Err: err}
	}
	expanded, err := exp.Expand(string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fetchhttp.Raw(expanded), nil
}

// expander collects variables from --env-file and then --var.
func (f requestFlags) expander() (*env.Expander, error) {
	vars := make(map[string]string)
	if f.envFile != "" {
		loaded, err := env.LoadDotEnv(f.envFile)
		if err != nil {
			return nil, err
		}
		vars = loaded
	}
	for _, item := range f.vars {
		key, value, err := splitPair("variable", item)
		if err != nil {
			return nil, err
		}
		vars[key] = value
	}
	return env.NewExpander(vars), nil
}

// expand returns a copy of f and url with every placeholder replaced.
func (f requestFlags) expand(url string) (requestFlags, string, *env.Expander, error) {
	exp, err := f.expander()
	if err != nil {
		return f, url, nil, err
	}
	if url, err = exp.Expand(url); err != nil {
		return f, url, nil, err
	}
	for _, list := range []*[]string{&f.headers, &f.query, &f.json, &f.form} {
		if *list, err = exp.ExpandAll(*list); err != nil {
			return f, url, nil, err
		}
	}
	if f.data, err = exp.Expand(f.data); err != nil {
		return f, url, nil, err
	}
	return f, url, exp, nil
}

// build turns the flags into a request. Placeholders are expanded and files
// named by the flags are read on every call.
func (f requestFlags) build(url string) (*fetchhttp.Request, error) {
	f, url, exp, err := f.expand(url)
	if err != nil {
		return nil, err
	}

	sources := 0
	for _, set := range []bool{f.data != "", len(f.json) > 0, len(f.form) > 0} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return nil, fmt.Errorf("only one of --data, --json and --form may be used")
	}

	method := f.method
	if method == "" {
		method = fetchhttp.MethodGet.String()
		if sources > 0 {
			method = fetchhttp.MethodPost.String()
		}
	}
	req := fetchhttp.NewRequest(method, url)

	for _, h := range f.headers {
		name, value, err := splitHeader(h)
		if err != nil {
			return nil, err
		}
		req.SetHeader(name, value)
	}
	for _, q := range f.query {
		key, value, err := splitPair("query parameter", q)
		if err != nil {
			return nil, err
		}
		req.SetQueryParam(key, value)
	}

	switch {
	case f.data != "":
		body, err := dataBody(f.data, exp)
		if err != nil {
			return nil, err
		}
		req.SetBody(body)
	case len(f.json) > 0:
		values, err := jsonValues(f.json)
		if err != nil {
			return nil, err
		}
		if !req.Headers.Has("Content-Type") {
			req.SetHeader("Content-Type", fetchhttp.MIMEJSON)
		}
		req.SetBody(values)
	case len(f.form) > 0:
		form, err := formData(f.form)
		if err != nil {
			return nil, err
		}
		req.SetBody(form)
	}

	return req, nil
}

// files lists the local files a request reads, for watch mode.
func (f requestFlags) files() []string {
	var paths []string
	if f.envFile != "" {
		paths = append(paths, f.envFile)
	}
	if path, ok := strings.CutPrefix(f.data, "@"); ok {
		paths = append(paths, path)
	}
	for _, item := range f.form {
		if _, value, ok := strings.Cut(item, "="); ok {
			if path, ok := strings.CutPrefix(value, "@"); ok {
				paths = append(paths, path)
			}
		}
	}
	return paths
}
