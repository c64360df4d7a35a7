package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/refinery/pkg/errors"
)

// Example demonstrates basic error creation and details.
func Example() {
	err := errors.New(errors.ErrorTypeValidation, "session key must not be empty").
		WithDetail("field", "key")

	fmt.Println(err.Error())

	// Output:
	// validation: session key must not be empty
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.EOF, errors.ErrorTypeFile, "failed to read CSV header").
		WithDetail("file", "data.csv")

	if errors.IsType(err, errors.ErrorTypeFile) {
		fmt.Println("file error")
	}
	fmt.Println(err.Error())

	// Output:
	// file error
	// file: failed to read CSV header: EOF
}

// ExampleNotFound demonstrates the error returned for unknown sessions.
func ExampleNotFound() {
	err := errors.NotFound("abc")

	fmt.Println(errors.IsNotFound(err))
	fmt.Println(err.Details["session_key"])
	fmt.Println(err)

	// Output:
	// true
	// abc
	// not_found: session "abc" not found
}

// ExampleInvalidMethod shows how unknown strategy strings are reported.
func ExampleInvalidMethod() {
	err := errors.InvalidMethod("strategy", "average")

	fmt.Println(errors.IsInvalidMethod(err))
	fmt.Println(err)

	// Output:
	// true
	// invalid_method: unknown strategy "average"
}

// Example_errorChain shows that type predicates see through wrapping.
func Example_errorChain() {
	inner := errors.InvalidColumn("target", "not found in table")
	outer := errors.Wrap(inner, errors.ErrorTypeData, "recipe step 3 failed")

	fmt.Println(errors.IsInvalidColumn(outer))
	fmt.Println(errors.IsType(outer, errors.ErrorTypeData))
	fmt.Println(errors.IsNotFound(outer))

	// Output:
	// true
	// true
	// false
}
