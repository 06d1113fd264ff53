// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tpch

// Row structs mirror the emitter's C layouts: fixed-size byte buffers
// holding null-terminated text, integer money fields in pennies, and
// explicit length fields ONLY where the emitter initializes them. The
// emitter reuses one struct per relation across callbacks, so bytes past
// a terminator are stale data from earlier rows — exactly the C behavior
// the converters must survive.
//
// Length-field trust rules (converters MUST follow these):
//   - CommentLen fields are initialized by the emitter: use them.
//   - PartRow.NameLen is NOT initialized: always compute the length from
//     the terminator. Trusting it historically produced unbounded
//     allocations from stale garbage.

// Money is an integer number of pennies; dividing by 100 yields the
// decimal column value.
type Money = int64

// LineItemRow is one lineitem callback payload.
type LineItemRow struct {
	OrderKey      int64
	PartKey       int64
	SuppKey       int64
	LineNumber    int32
	Quantity      Money // pennies: 1734 renders as 17.34
	ExtendedPrice Money
	Discount      Money
	Tax           Money
	ReturnFlag    [2]byte
	LineStatus    [2]byte
	ShipDate      [11]byte
	CommitDate    [11]byte
	ReceiptDate   [11]byte
	ShipInstruct  [26]byte
	ShipMode      [11]byte
	Comment       [45]byte
	CommentLen    int32 // initialized
}

// OrdersRow is one orders callback payload.
type OrdersRow struct {
	OrderKey      int64
	CustKey       int64
	OrderStatus   [2]byte
	TotalPrice    Money
	OrderDate     [11]byte
	OrderPriority [16]byte
	Clerk         [16]byte
	ShipPriority  int32
	Comment       [80]byte
	CommentLen    int32 // initialized
}

// CustomerRow is one customer callback payload.
type CustomerRow struct {
	CustKey    int64
	Name       [26]byte
	Address    [41]byte
	AddressLen int32 // initialized
	NationKey  int32
	Phone      [16]byte
	AcctBal    Money
	MktSegment [11]byte
	Comment    [118]byte
	CommentLen int32 // initialized
}

// PartRow is one part callback payload.
type PartRow struct {
	PartKey     int64
	Name        [56]byte
	NameLen     int32 // NOT initialized; never trust (see package comment)
	Mfgr        [26]byte
	Brand       [11]byte
	Type        [26]byte
	TypeLen     int32 // initialized
	Size        int32
	Container   [11]byte
	RetailPrice Money
	Comment     [23]byte
	CommentLen  int32 // initialized
}

// PartSuppRow is one partsupp callback payload.
type PartSuppRow struct {
	PartKey    int64
	SuppKey    int64
	AvailQty   int32
	SupplyCost Money
	Comment    [200]byte
	CommentLen int32 // initialized
}

// SupplierRow is one supplier callback payload.
type SupplierRow struct {
	SuppKey    int64
	Name       [26]byte
	Address    [41]byte
	AddressLen int32 // initialized
	NationKey  int32
	Phone      [16]byte
	AcctBal    Money
	Comment    [102]byte
	CommentLen int32 // initialized
}

// NationRow is one nation callback payload.
type NationRow struct {
	NationKey  int32
	Name       [26]byte
	RegionKey  int32
	Comment    [153]byte
	CommentLen int32 // initialized
}

// RegionRow is one region callback payload. The emitter's C struct is the
// shared code_t, which carries an unused join field; it is kept here so
// the layout stays faithful, and no column is produced from it.
type RegionRow struct {
	RegionKey  int32
	Name       [26]byte
	Join       int32 // present in the emitter layout, never populated
	Comment    [153]byte
	CommentLen int32 // initialized
}
