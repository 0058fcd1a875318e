// This file is part of Spipanel.
//
// Spipanel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Spipanel is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Spipanel.  If not, see <https://www.gnu.org/licenses/>.

// Package transport sends commands, command arguments and pixel data to the
// panel. It has two modes of operation.
//
// In polling mode every submission is sent synchronously, using a single
// static transaction, and the submitting goroutine waits for the transfer to
// complete.
//
// In queued mode submissions take a transaction from a small fixed set of
// slots, are placed on a queue and return immediately. A completion goroutine
// sends queued transactions in order, returns line buffers to their pool and
// returns the slot to the free set. The number of slots bounds the number of
// outstanding transfers. Drain() waits until every slot is free.
//
// The control-line hook is called immediately before every physical transfer
// in both modes. The hook for a panel will set the data/command line according
// to the Kind of the transaction.
//
// A transfer error is latched. Every later submission and every call to
// Drain() returns the latched error. Nothing is retried.
package transport
