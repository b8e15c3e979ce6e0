package clgeo

import (
	"net/netip"

	"github.com/oschwald/geoip2-golang/v2"
	"github.com/rs/zerolog/log"
)

// Locator retourne le code pays ISO d'une adresse IP, "" si inconnu
type Locator interface {
	Country(ip string) string
}

// Reader s'appuie sur une base MaxMind GeoLite2/GeoIP2 Country ou City
type Reader struct {
	db *geoip2.Reader
}

// Open ouvre la base. Un chemin vide retourne un Locator qui ne localise rien.
func Open(path string) (Locator, error) {
	if path == "" {
		return Nop{}, nil
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Msg("GeoIP database loaded")
	return &Reader{db: db}, nil
}

func (r *Reader) Country(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil || addr.IsLoopback() || addr.IsPrivate() {
		return ""
	}
	record, err := r.db.Country(addr.Unmap())
	if err != nil {
		log.Debug().Err(err).Str("ip", ip).Msg("GeoIP lookup failed")
		return ""
	}
	return record.Country.ISOCode
}

func (r *Reader) Close() error {
	return r.db.Close()
}

// Nop est utilisé sans base configurée
type Nop struct{}

func (Nop) Country(string) string { return "" }
