// Package sampling implements the Markov-chain samplers that estimate the
// heads-count distribution of N fair coin flips.
//
// Two samplers share one ensemble type:
//
//   - WangLandau is the 1/t variant of Wang-Landau sampling. It adapts a
//     log-density estimate while it walks the head-count space and finishes
//     once its modification factor log_f falls below a threshold.
//   - Entropic is entropic sampling seeded from a Wang-Landau state. It keeps
//     the weights fixed between refinements and folds the visited histogram
//     into the estimate on RefineEstimate.
//
// Neither type is safe for concurrent use; callers guard them (see package
// estimator).
package sampling
