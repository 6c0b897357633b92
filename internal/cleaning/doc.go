// Package cleaning implements the data-cleaning core.
//
// MatImputer fills absent cells column by column, least missing column first.
// Each column is predicted by an ExtraTrees model trained on a helper table
// where every other column was densified by distance-weighted KNN imputation.
//
// RemoveOutliers repeatedly fits a RandomForest from the feature columns to a
// target column and drops rows whose standardized residual is at least 1.7,
// or whose hat-matrix leverage exceeds 0.2, until the requested share of rows
// is gone.
//
// Both operations work on a copy; the caller's table is never modified.
package cleaning
