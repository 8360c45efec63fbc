package http

// Method is an HTTP request verb.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
	MethodConnect Method = "CONNECT"
	MethodTrace   Method = "TRACE"
)

var supportedMethods = map[Method]struct{}{
	MethodGet:     {},
	MethodPost:    {},
	MethodPut:     {},
	MethodPatch:   {},
	MethodDelete:  {},
	MethodHead:    {},
	MethodOptions: {},
	MethodConnect: {},
	MethodTrace:   {},
}

// ParseMethod validates a method name. Names are matched exactly, so "get"
// is rejected. An empty string means GET.
func ParseMethod(s string) (Method, error) {
	if s == "" {
		return MethodGet, nil
	}
	m := Method(s)
	if _, ok := supportedMethods[m]; !ok {
		return "", &UnsupportedMethodError{Method: s}
	}
	return m, nil
}

func (m Method) String() string {
	return string(m)
}
