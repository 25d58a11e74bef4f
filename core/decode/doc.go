// Package decode reads a schedule back out of a solver answer: start times
// per task, the makespan, and whether the assignment satisfies the model.
package decode
