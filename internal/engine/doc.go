// Package engine is a small file-oriented test runner.
//
// OVERVIEW
// --------
// The engine is driven like a command line tool: Main receives an argument
// list and a list of plugins and returns an ExitCode. Positional arguments
// select files (and optionally single tests inside them):
//
//	t_3f2a::test_ok          one test
//	t_3f2a                   every test of the file t_3f2a.nbt
//	-k "ok and not slow"     keyword expression over test and module names
//	--deselect t_3f2a::test_slow
//
// Files are disk-oriented on purpose: a selected path must exist. What is
// collected from a file comes from a namespace, found in this order:
//
//  1. the first plugin implementing FileCollector that claims the path;
//  2. the module registry (WithRegistry), keyed by the file's stem.
//
// Every key of that namespace starting with "test" whose value adapts to a
// TestFunc (see Adapt) becomes a test item, in namespace order.
//
// EXIT CODES
// ----------
// 0 all selected tests passed, 1 some failed, 2 collection errors,
// 3 internal error, 4 usage error, 5 nothing was selected.
package engine
