// Package textutil holds small string helpers shared by the writers.
package textutil
