// Package invoke runs the subject binary for one test case and captures its
// output.
//
// Three strategies share the Strategy interface and are chosen once per run
// by Select, in priority order runner > memory-checked > direct:
//
//	direct:   <subject> <args...>
//	memcheck: <checker> --error-exitcode=1 --leak-check=full -q <subject> <args...>
//	runner:   <runner words...> <subject> <args...>
//
// The memory checker forces exit status 1 when it detects an error, even if
// the subject itself exited 0. A runner writes its own diagnostics to stderr,
// so when the case declares a stderr expectation the captured stderr is
// marked as masked and the declared value stands in for it.
package invoke
