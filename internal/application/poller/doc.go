// Package poller runs the periodic service probe loop.
package poller
