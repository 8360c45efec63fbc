// Package env expands {{placeholders}} in request arguments.
//
// A placeholder is one of:
//   - {{name}}: a variable from --var or an env file
//   - {{$NAME}}: a process environment variable
//   - {{fn(args)}}: a built-in function such as uuid() or timestamp()
package env
