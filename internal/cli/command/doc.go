// Package command defines the rjournal command-line interface.
//
// Local commands open the journal file named by --journal or the config
// file: append, verify, dump, recover, bench. The remote group talks to a
// running rjournald over HTTP. keygen and version need neither.
//
// Results go to the app writer through internal/cli/output so every
// command honors --output table|json|yaml.
package command
