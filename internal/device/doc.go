// Package device tracks consumed memory per accelerator and places work on the
// least-loaded one. All state is lock-free atomic counters; multi-step
// sequences such as check-then-reserve are not transactions.
package device
