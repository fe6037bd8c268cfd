// Package config loads, resolves, and validates variant documents.
//
// A variant is a YAML document named config-<name>.yaml inside the configs
// directory. Documents may declare single-parent inheritance through an
// "extends" key naming another variant. Resolution flattens the inheritance
// chain into one document:
//
//  1. The ancestor chain is followed recursively. A missing ancestor is
//     fatal, and a chain that revisits a name is rejected as a cycle.
//  2. Ancestor and descendant are deep-merged: mappings merge key by key,
//     sequences concatenate with ancestor entries first, and for scalars or
//     mismatched shapes the descendant value wins.
//  3. The "extends" key is removed before merging and never appears in a
//     resolved document.
//
// Resolved documents are cached per Loader instance and must be treated as
// read-only by callers.
package config
