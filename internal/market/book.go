package market

import "sort"

// book holds one symbol's resting orders. Each side is kept best price
// first, FIFO within a price.
type book struct {
	bids []*Order
	asks []*Order
	byID map[uint64]*Order
}

func newBook() *book {
	return &book{byID: make(map[uint64]*Order)}
}

func (b *book) side(s Side) *[]*Order {
	if s == Buy {
		return &b.bids
	}
	return &b.asks
}

func (b *book) insert(o *Order) {
	side := b.side(o.Side)
	orders := *side
	i := sort.Search(len(orders), func(i int) bool {
		if o.Side == Buy {
			return orders[i].Price < o.Price
		}
		return orders[i].Price > o.Price
	})
	orders = append(orders, nil)
	copy(orders[i+1:], orders[i:])
	orders[i] = o
	*side = orders
	b.byID[o.ID] = o
}

func (b *book) remove(o *Order) {
	side := b.side(o.Side)
	orders := *side
	for i, cur := range orders {
		if cur == o {
			copy(orders[i:], orders[i+1:])
			orders[len(orders)-1] = nil
			*side = orders[:len(orders)-1]
			break
		}
	}
	delete(b.byID, o.ID)
}

func levels(orders []*Order) []Level {
	out := []Level{}
	for _, o := range orders {
		if n := len(out); n > 0 && out[n-1].Price == o.Price {
			out[n-1].Quantity += o.Quantity
			out[n-1].Orders++
			continue
		}
		out = append(out, Level{Price: o.Price, Quantity: o.Quantity, Orders: 1})
	}
	return out
}
