package dataset

import _ "embed"

// SampleCSV is an example upload using the canonical header spelling.
//
//go:embed sample.csv
var SampleCSV []byte
