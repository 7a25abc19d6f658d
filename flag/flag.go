// Package flag provides the common command-line flags shared by applications
// embedding go-locale.
//
// It is built on top of the pflag library and registers a small set of
// default flags:
//
//   - `--path`  (string): Sets the application's data directory (default: "./data")
//   - `--debug` (bool): Enables debug mode (error traces, verbose logging)
//
// The `Init` function parses all registered flags and should be called early,
// typically in the `main` function of the application. Additional flags can be
// registered with `Register` before `Init` is called.
//
// Example:
//
//	package main
//
//	import (
//		"fmt"
//		"github.com/valentin-kaiser/go-locale/flag"
//	)
//
//	var locales string
//
//	func main() {
//		flag.Register("locales", &locales, "Base path or URL of the locale files")
//		flag.Init()
//
//		fmt.Println("Path:", flag.Path)
//	}
package flag

import (
	"fmt"
	"os"
	"reflect"

	"github.com/spf13/pflag"
)

var (
	// Path is the default path for the application data
	Path string
	// Debug indicates whether debug mode is enabled
	Debug bool
)

func init() {
	pflag.StringVar(&Path, "path", "./data", "Sets the application working directory")
	pflag.BoolVar(&Debug, "debug", false, "Enables debug mode")
}

// Init initializes the flags and parses them
// It should be called in the main package of the application
func Init() {
	pflag.Parse()
}

// PrintHelp prints the help message to standard error output
func PrintHelp() {
	fmt.Fprintln(os.Stderr, "Usage:")
	pflag.PrintDefaults()
}

// Arguments returns the non-flag command-line arguments
func Arguments() []string {
	return pflag.Args()
}

// Register registers a new flag with the given name, value and usage
// It panics if the flag is already registered or if the value is not a pointer
func Register(name string, value interface{}, usage string) {
	if pflag.Lookup(name) != nil {
		panic(fmt.Sprintf("flag %s already registered", name))
	}

	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr {
		panic(fmt.Sprintf("flag %s must be a pointer", name))
	}

	if val.IsNil() {
		panic(fmt.Sprintf("flag %s must not be nil", name))
	}

	switch v := value.(type) {
	case *string:
		pflag.StringVar(v, name, *v, usage)
	case *bool:
		pflag.BoolVar(v, name, *v, usage)
	case *int:
		pflag.IntVar(v, name, *v, usage)
	case *int64:
		pflag.Int64Var(v, name, *v, usage)
	case *uint:
		pflag.UintVar(v, name, *v, usage)
	case *uint64:
		pflag.Uint64Var(v, name, *v, usage)
	case *float64:
		pflag.Float64Var(v, name, *v, usage)
	default:
		panic(fmt.Sprintf("unsupported type %T", v))
	}
}
