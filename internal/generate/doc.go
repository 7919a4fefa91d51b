// Package generate is the write path: it loads a YAML authoring tree,
// validates every document against the namespace schemas, merges files
// into per-target layers, and emits canonical distributable artifacts,
// either as JSON files or as a Kubernetes ConfigMap manifest.
//
// The whole run is validated before anything is written. A single invalid
// document, an unknown namespace, or an artifact over the size ceiling
// fails the run with no partial output.
package generate
