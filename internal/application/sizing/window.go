package sizing

import "github.com/alejandrodnm/tradecore/internal/domain"

// tradeWindow es un buffer circular de capacidad fija con los últimos N outcomes.
// El array se reserva una vez; push sobreescribe el más antiguo al llenarse.
type tradeWindow struct {
	buf   []domain.TradeOutcome
	next  int // índice donde se escribe el próximo outcome
	count int
	wins  int
}

func newTradeWindow(capacity int) *tradeWindow {
	if capacity <= 0 {
		capacity = 1
	}
	return &tradeWindow{buf: make([]domain.TradeOutcome, capacity)}
}

// push añade un outcome, evictando el más antiguo si la ventana está llena.
func (w *tradeWindow) push(o domain.TradeOutcome) {
	if w.count == len(w.buf) {
		if w.buf[w.next].Win {
			w.wins--
		}
	} else {
		w.count++
	}
	w.buf[w.next] = o
	if o.Win {
		w.wins++
	}
	w.next = (w.next + 1) % len(w.buf)
}

func (w *tradeWindow) len() int { return w.count }

// winRate devuelve la fracción de wins en la ventana (0 si está vacía).
func (w *tradeWindow) winRate() float64 {
	if w.count == 0 {
		return 0
	}
	return float64(w.wins) / float64(w.count)
}

// snapshot copia los outcomes de más antiguo a más reciente.
func (w *tradeWindow) snapshot() []domain.TradeOutcome {
	out := make([]domain.TradeOutcome, w.count)
	start := (w.next - w.count + len(w.buf)) % len(w.buf)
	for i := 0; i < w.count; i++ {
		out[i] = w.buf[(start+i)%len(w.buf)]
	}
	return out
}
