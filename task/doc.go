// Package task maps fix-workflow steps to model tiers.
//
// Fix generation carries the reasoning load and gets the thinking tier;
// stack detection and query planning are cheap classification work and
// run on the fast tier; analysis and review sit in between.
package task
