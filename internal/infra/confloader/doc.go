// Package confloader loads configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Overrides, typically command-line flags, as dotted keys
//  2. Environment variables (RJOURNAL_ prefix, "__" between sections)
//  3. The YAML configuration file
//  4. Defaults already present in the target struct
//
// Watcher reports changes to the configuration file through fsnotify,
// coalescing bursts of writes, so the daemon can reload settings that are
// safe to change at runtime.
package confloader
