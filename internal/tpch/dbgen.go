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

import (
	"fmt"
	"time"
)

// RowFunc receives one emitter row. The row points at per-relation
// storage that is REUSED on the next callback; callers must extract what
// they need before returning.
type RowFunc func(row any) error

// Emitter produces the rows of one relation at a fixed scale factor,
// invoking the callback once per row until the relation is exhausted.
// Emitters carry process-wide seed state and are single-producer: one
// goroutine drives one relation at a time.
type Emitter interface {
	ForEachRow(t Table, maxRows int64, fn RowFunc) error
}

// Dbgen is the deterministic benchmark emitter. Keys, dates, money
// amounts and text are reproducible for a given scale factor, and row
// counts match RowCount exactly, including the lineitem top-up.
type Dbgen struct {
	sf int

	// per-relation reused rows; stale text bytes survive across
	// callbacks on purpose (see rows.go).
	li LineItemRow
	or OrdersRow
	cu CustomerRow
	pa PartRow
	ps PartSuppRow
	su SupplierRow
	na NationRow
	re RegionRow
}

// NewDbgen creates an emitter for the given scale factor (minimum 1).
func NewDbgen(sf int) *Dbgen {
	if sf < 1 {
		sf = 1
	}
	return &Dbgen{sf: sf}
}

// ScaleFactor reports the emitter's scale factor.
func (g *Dbgen) ScaleFactor() int { return g.sf }

// rng is a splitmix64 stream; one per relation traversal so relations
// are independently reproducible.
type rng struct{ x uint64 }

func newRNG(t Table, sf int) *rng {
	h := uint64(0x9e3779b97f4a7c15)
	for _, c := range []byte(t) {
		h = (h ^ uint64(c)) * 0x100000001b3
	}
	return &rng{x: h ^ uint64(sf)<<32}
}

func (r *rng) next() uint64 {
	r.x += 0x9e3779b97f4a7c15
	z := r.x
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// intn returns a value in [lo, hi].
func (r *rng) intn(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + int64(r.next()%uint64(hi-lo+1))
}

// Fixed text pools, per the benchmark's word lists.
var (
	regionNames = []string{"AFRICA", "AMERICA", "ASIA", "EUROPE", "MIDDLE EAST"}

	nationNames = []string{
		"ALGERIA", "ARGENTINA", "BRAZIL", "CANADA", "EGYPT", "ETHIOPIA",
		"FRANCE", "GERMANY", "INDIA", "INDONESIA", "IRAN", "IRAQ", "JAPAN",
		"JORDAN", "KENYA", "MOROCCO", "MOZAMBIQUE", "PERU", "CHINA",
		"ROMANIA", "SAUDI ARABIA", "VIETNAM", "RUSSIA", "UNITED KINGDOM",
		"UNITED STATES",
	}
	nationRegion = []int32{0, 1, 1, 1, 4, 0, 3, 3, 2, 2, 4, 4, 2, 4, 0, 0, 0, 1, 2, 3, 4, 2, 3, 3, 1}

	partColors = []string{
		"almond", "antique", "aquamarine", "azure", "beige", "bisque",
		"black", "blanched", "blue", "blush", "brown", "burlywood",
		"burnished", "chartreuse", "chiffon", "chocolate", "coral",
		"cornflower", "cornsilk", "cream", "cyan", "dark", "deep", "dim",
		"dodger", "drab", "firebrick", "floral", "forest", "frosted",
		"gainsboro", "ghost", "goldenrod", "green", "grey", "honeydew",
		"hot", "indian", "ivory", "khaki", "lace", "lavender", "lawn",
		"lemon", "light", "lime", "linen", "magenta", "maroon", "medium",
		"metallic", "midnight", "mint", "misty", "moccasin", "navajo",
		"navy", "olive", "orange", "orchid", "pale", "papaya", "peach",
		"peru", "pink", "plum", "powder", "puff", "purple", "red", "rose",
		"rosy", "royal", "saddle", "salmon", "sandy", "seashell", "sienna",
		"sky", "slate", "smoke", "snow", "spring", "steel", "tan",
		"thistle", "tomato", "turquoise", "violet", "wheat", "white",
		"yellow",
	}

	typeSyl1 = []string{"STANDARD", "SMALL", "MEDIUM", "LARGE", "ECONOMY", "PROMO"}
	typeSyl2 = []string{"ANODIZED", "BURNISHED", "PLATED", "POLISHED", "BRUSHED"}
	typeSyl3 = []string{"TIN", "NICKEL", "BRASS", "STEEL", "COPPER"}

	containerSyl1 = []string{"SM", "LG", "MED", "JUMBO", "WRAP"}
	containerSyl2 = []string{"CASE", "BOX", "BAG", "JAR", "PKG", "PACK", "CAN", "DRUM"}

	segments   = []string{"AUTOMOBILE", "BUILDING", "FURNITURE", "MACHINERY", "HOUSEHOLD"}
	priorities = []string{"1-URGENT", "2-HIGH", "3-MEDIUM", "4-NOT SPECIFIED", "5-LOW"}
	instructs  = []string{"DELIVER IN PERSON", "COLLECT COD", "NONE", "TAKE BACK RETURN"}
	shipModes  = []string{"REG AIR", "AIR", "RAIL", "SHIP", "TRUCK", "MAIL", "FOB"}

	commentWords = []string{
		"blithely", "carefully", "furiously", "quickly", "slyly", "ironic",
		"final", "pending", "regular", "express", "special", "bold",
		"even", "silent", "unusual", "accounts", "deposits", "requests",
		"instructions", "packages", "theodolites", "platelets", "pinto",
		"beans", "foxes", "ideas", "dependencies", "excuses", "asymptotes",
		"courts", "dolphins", "multipliers", "sauternes", "warhorses",
		"sleep", "haggle", "nag", "wake", "cajole", "detect", "integrate",
		"use", "boost", "doze", "engage", "among", "across", "above",
		"against", "along",
	}
)

// Date range of the benchmark: 1992-01-01 .. 1998-12-31.
var dateBase = time.Date(1992, 1, 1, 0, 0, 0, 0, time.UTC)

const dateRangeDays = 2557

// putDate renders an epoch-day offset as YYYY-MM-DD into buf.
func putDate(buf []byte, day int64) {
	d := dateBase.AddDate(0, 0, int(day))
	copy(buf, d.Format("2006-01-02"))
	buf[10] = 0
}

// putText writes s into buf with a null terminator, truncating to fit,
// and deliberately leaves whatever trailed it from the previous row.
func putText(buf []byte, s string) int {
	n := copy(buf[:len(buf)-1], s)
	buf[n] = 0
	return n
}

// fillComment writes a benchmark-style comment whose length falls between
// half the buffer's capacity and one byte short of it, and returns that
// length.
func fillComment(buf []byte, r *rng) int32 {
	target := len(buf)/2 + int(r.next()%uint64(len(buf)/2))
	if target >= len(buf) {
		target = len(buf) - 1
	}
	n := 0
	for n < target {
		w := commentWords[r.next()%uint64(len(commentWords))]
		if n > 0 {
			if n+1 >= target {
				break
			}
			buf[n] = ' '
			n++
		}
		if n+len(w) > target {
			w = w[:target-n]
		}
		copy(buf[n:], w)
		n += len(w)
	}
	buf[n] = 0
	return int32(n)
}

func putPhone(buf []byte, nation int32, r *rng) {
	s := fmt.Sprintf("%02d-%03d-%03d-%04d", 10+nation,
		r.intn(100, 999), r.intn(100, 999), r.intn(1000, 9999))
	putText(buf[:], s)
}

// ForEachRow drives the callback for every row of the relation, up to
// maxRows when maxRows > 0. The callback's row pointer is reused.
func (g *Dbgen) ForEachRow(t Table, maxRows int64, fn RowFunc) error {
	total := RowCount(t, g.sf)
	if maxRows > 0 && maxRows < total {
		total = maxRows
	}
	r := newRNG(t, g.sf)
	switch t {
	case Region:
		return g.eachRegion(total, r, fn)
	case Nation:
		return g.eachNation(total, r, fn)
	case Supplier:
		return g.eachSupplier(total, r, fn)
	case Customer:
		return g.eachCustomer(total, r, fn)
	case Part:
		return g.eachPart(total, r, fn)
	case PartSupp:
		return g.eachPartSupp(total, r, fn)
	case Orders:
		return g.eachOrders(total, r, fn)
	case LineItem:
		return g.eachLineItem(total, r, fn)
	}
	return fmt.Errorf("tpch: unknown table %q", t)
}

func (g *Dbgen) eachRegion(total int64, r *rng, fn RowFunc) error {
	for i := int64(0); i < total; i++ {
		g.re.RegionKey = int32(i)
		putText(g.re.Name[:], regionNames[i%5])
		g.re.CommentLen = fillComment(g.re.Comment[:], r)
		if err := fn(&g.re); err != nil {
			return err
		}
	}
	return nil
}

func (g *Dbgen) eachNation(total int64, r *rng, fn RowFunc) error {
	for i := int64(0); i < total; i++ {
		g.na.NationKey = int32(i)
		putText(g.na.Name[:], nationNames[i%25])
		g.na.RegionKey = nationRegion[i%25]
		g.na.CommentLen = fillComment(g.na.Comment[:], r)
		if err := fn(&g.na); err != nil {
			return err
		}
	}
	return nil
}

func (g *Dbgen) eachSupplier(total int64, r *rng, fn RowFunc) error {
	for i := int64(0); i < total; i++ {
		key := i + 1
		g.su.SuppKey = key
		putText(g.su.Name[:], fmt.Sprintf("Supplier#%09d", key))
		g.su.AddressLen = int32(putText(g.su.Address[:], randAddress(r)))
		g.su.NationKey = int32(r.intn(0, 24))
		putPhone(g.su.Phone[:], g.su.NationKey, r)
		g.su.AcctBal = r.intn(-99999, 999999)
		g.su.CommentLen = fillComment(g.su.Comment[:], r)
		if err := fn(&g.su); err != nil {
			return err
		}
	}
	return nil
}

func (g *Dbgen) eachCustomer(total int64, r *rng, fn RowFunc) error {
	for i := int64(0); i < total; i++ {
		key := i + 1
		g.cu.CustKey = key
		putText(g.cu.Name[:], fmt.Sprintf("Customer#%09d", key))
		g.cu.AddressLen = int32(putText(g.cu.Address[:], randAddress(r)))
		g.cu.NationKey = int32(r.intn(0, 24))
		putPhone(g.cu.Phone[:], g.cu.NationKey, r)
		g.cu.AcctBal = r.intn(-99999, 999999)
		putText(g.cu.MktSegment[:], segments[r.next()%uint64(len(segments))])
		g.cu.CommentLen = fillComment(g.cu.Comment[:], r)
		if err := fn(&g.cu); err != nil {
			return err
		}
	}
	return nil
}

func (g *Dbgen) eachPart(total int64, r *rng, fn RowFunc) error {
	for i := int64(0); i < total; i++ {
		key := i + 1
		g.pa.PartKey = key
		putText(g.pa.Name[:], partName(r))
		m := r.intn(1, 5)
		putText(g.pa.Mfgr[:], fmt.Sprintf("Manufacturer#%d", m))
		putText(g.pa.Brand[:], fmt.Sprintf("Brand#%d%d", m, r.intn(1, 5)))
		g.pa.TypeLen = int32(putText(g.pa.Type[:], partType(r)))
		g.pa.Size = int32(r.intn(1, 50))
		putText(g.pa.Container[:], partContainer(r))
		g.pa.RetailPrice = 90000 + (key/10)%20001 + 100*(key%1000)
		g.pa.CommentLen = fillComment(g.pa.Comment[:], r)
		if err := fn(&g.pa); err != nil {
			return err
		}
	}
	return nil
}

func (g *Dbgen) eachPartSupp(total int64, r *rng, fn RowFunc) error {
	supps := RowCount(Supplier, g.sf)
	for i := int64(0); i < total; i++ {
		part := i/4 + 1
		g.ps.PartKey = part
		g.ps.SuppKey = 1 + (part+(i%4)*(supps/4+part/supps))%supps
		g.ps.AvailQty = int32(r.intn(1, 9999))
		g.ps.SupplyCost = r.intn(100, 100000)
		g.ps.CommentLen = fillComment(g.ps.Comment[:], r)
		if err := fn(&g.ps); err != nil {
			return err
		}
	}
	return nil
}

// orderKeyAt spreads order keys sparsely, eight per 32-key block.
func orderKeyAt(i int64) int64 {
	return (i/8)*32 + i%8 + 1
}

func (g *Dbgen) eachOrders(total int64, r *rng, fn RowFunc) error {
	custs := RowCount(Customer, g.sf)
	for i := int64(0); i < total; i++ {
		g.or.OrderKey = orderKeyAt(i)
		// every third customer key is skipped, per the benchmark
		ck := r.intn(1, custs)
		if ck%3 == 0 {
			ck--
		}
		g.or.CustKey = ck
		day := r.intn(0, dateRangeDays-151)
		putDate(g.or.OrderDate[:], day)
		st := r.intn(0, 2)
		statuses := [3]string{"F", "O", "P"}
		putText(g.or.OrderStatus[:], statuses[st])
		g.or.TotalPrice = r.intn(85000, 55000000)
		putText(g.or.OrderPriority[:], priorities[r.next()%uint64(len(priorities))])
		putText(g.or.Clerk[:], fmt.Sprintf("Clerk#%09d", r.intn(1, 1000*int64(g.sf))))
		g.or.ShipPriority = 0
		g.or.CommentLen = fillComment(g.or.Comment[:], r)
		if err := fn(&g.or); err != nil {
			return err
		}
	}
	return nil
}

// lineCountAt picks 1..7 lines for the order at index i while steering
// the running total so the relation lands exactly on target.
func lineCountAt(r *rng, emitted, target, ordersLeft int64) int64 {
	n := r.intn(1, 7)
	// remaining orders (after this one) must each fit in [1, 7]
	rest := ordersLeft - 1
	if lo := target - emitted - rest*7; n < lo {
		n = lo
	}
	if hi := target - emitted - rest*1; n > hi {
		n = hi
	}
	if n < 1 {
		n = 1
	}
	if n > 7 {
		n = 7
	}
	return n
}

func (g *Dbgen) eachLineItem(total int64, r *rng, fn RowFunc) error {
	target := RowCount(LineItem, g.sf)
	orders := RowCount(Orders, g.sf)
	parts := RowCount(Part, g.sf)
	supps := RowCount(Supplier, g.sf)
	emitted := int64(0)
	for oi := int64(0); oi < orders && emitted < total; oi++ {
		lines := lineCountAt(r, emitted, target, orders-oi)
		okey := orderKeyAt(oi)
		oday := r.intn(0, dateRangeDays-151)
		for ln := int64(1); ln <= lines && emitted < total; ln++ {
			g.li.OrderKey = okey
			g.li.PartKey = r.intn(1, parts)
			g.li.SuppKey = r.intn(1, supps)
			g.li.LineNumber = int32(ln)
			g.li.Quantity = r.intn(1, 50) * 100
			g.li.ExtendedPrice = g.li.Quantity * r.intn(901, 2000)
			g.li.Discount = r.intn(0, 10)
			g.li.Tax = r.intn(0, 8)
			sday := oday + r.intn(1, 121)
			cday := oday + r.intn(30, 90)
			rday := sday + r.intn(1, 30)
			putDate(g.li.ShipDate[:], sday)
			putDate(g.li.CommitDate[:], cday)
			putDate(g.li.ReceiptDate[:], rday)
			if rday <= dateRangeDays-30 { // shipped long enough ago to be returnable
				flags := [2]string{"R", "A"}
				putText(g.li.ReturnFlag[:], flags[r.next()%2])
			} else {
				putText(g.li.ReturnFlag[:], "N")
			}
			if sday > dateRangeDays-200 {
				putText(g.li.LineStatus[:], "O")
			} else {
				putText(g.li.LineStatus[:], "F")
			}
			putText(g.li.ShipInstruct[:], instructs[r.next()%uint64(len(instructs))])
			putText(g.li.ShipMode[:], shipModes[r.next()%uint64(len(shipModes))])
			g.li.CommentLen = fillComment(g.li.Comment[:], r)
			if err := fn(&g.li); err != nil {
				return err
			}
			emitted++
		}
	}
	return nil
}

func randAddress(r *rng) string {
	n := r.intn(10, 38)
	b := make([]byte, n)
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 ,"
	for i := range b {
		b[i] = chars[r.next()%uint64(len(chars))]
	}
	return string(b)
}

func partName(r *rng) string {
	// five distinct-ish color words; duplicates are harmless for sizing
	out := make([]byte, 0, 55)
	for i := 0; i < 5; i++ {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, partColors[r.next()%uint64(len(partColors))]...)
	}
	return string(out)
}

func partType(r *rng) string {
	return typeSyl1[r.next()%uint64(len(typeSyl1))] + " " +
		typeSyl2[r.next()%uint64(len(typeSyl2))] + " " +
		typeSyl3[r.next()%uint64(len(typeSyl3))]
}

func partContainer(r *rng) string {
	return containerSyl1[r.next()%uint64(len(containerSyl1))] + " " +
		containerSyl2[r.next()%uint64(len(containerSyl2))]
}
