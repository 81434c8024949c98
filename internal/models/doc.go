// Package models defines the core domain models for finagent.
//
// # Models
//
//   - Transaction: one purchase event, possibly split with friends
//   - Friend: a named counterparty owned by a user
//   - Debt: an amount a friend owes the user for a split transaction
//
// # Design Principles
//
// 1. **User scoping**: every model carries the owning UserID; stores filter on it
// 2. **Absent is not zero**: optional split fields are pointers or nil maps so
//    an omitted value can fall back to an equal split
// 3. **Avoid circular references**: use ID strings instead of pointers for relationships
// 4. **Civil dates**: transaction dates are stored as YYYY-MM-DD strings
package models
