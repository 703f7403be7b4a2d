// Package test is the client for the TEST (LIMS) module: experiments,
// assays, data files, metadata, assay subjects and result imports.
//
// Tabular reshaping of assay results is left to the caller; results are
// returned as raw records.
package test
