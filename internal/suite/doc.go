// Package suite loads declarative conformance suites.
//
// # Suite Format
//
// A suite is a list of test cases, either at the top level or under a
// "tests" key. JSON and YAML accept both forms; TOML and CUE need the keyed
// form. Each case looks like:
//
//	{
//	  "input": {"arguments": ["--url", "https://curl.se/we/are.html", "--redirect", "here.html"]},
//	  "required": ["punycode"],
//	  "minruntime": "8.0.0",
//	  "minbuildtime": "7.81.0",
//	  "encoding": "UTF-8",
//	  "expected": {
//	    "stdout": "https://curl.se/we/here.html\n",
//	    "stderr": false,
//	    "returncode": 0
//	  }
//	}
//
// Only input and expected are mandatory. A boolean expected value is a
// presence check; any other value is a literal. A non-string stdout literal
// makes the case's stdout structured (parsed as JSON).
//
// Cases are numbered from 1 in file order and are immutable once loaded.
package suite
