// Package models holds the concrete sensor control models.
//
// Importing the package registers every built-in model with
// sensor.Default(). Tuned models described by a gain table are added at
// start-up with RegisterTabulated.
package models
