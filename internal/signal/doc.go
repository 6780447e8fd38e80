// Package signal synthesizes spatio-temporal test signals.
//
// Two families are provided:
//
//   - [Generator]: grid-based signals composed of travelling waves,
//     standing waves, trends and seeded noise, mirroring the datasets the
//     fitter is exercised against
//   - [ModeField] / [RealModeField]: pure sums of complex exponential
//     modes with known eigenvalues, for controlled fitter validation
//
// All randomness is drawn from explicitly seeded generators so sequences
// are reproducible and safe to regenerate from any point.
package signal
