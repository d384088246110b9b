// Package analysis fits the county models on the merged table.
//
// # Models
//
//   - FitLinear: OLS of a candidate's two-candidate share, QR solved
//   - FitLogistic: IRLS logistic regression of county wins with ROC, AUC
//     and a Youden-optimal threshold
//   - FitForest: bootstrap Gini trees with out-of-bag error and
//     permutation importance
//   - FitBoost: Bernoulli gradient boosting with the tree count chosen by
//     k-fold cross-validation
//   - FitKMeans: k-means++ clustering of standardized demographics with an
//     elbow sweep and a two-component PCA projection
//
// # Determinism
//
// Every random draw comes from a PCG generator keyed by the configured
// seed and a fixed stream per use, so a run is reproducible regardless of
// how the errgroup workers are scheduled.
//
// # Errors
//
// Fitters return a MODEL_FIT error when the table is empty, holds a
// non-finite value or the numerical solve fails.
package analysis
