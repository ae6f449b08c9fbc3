// Package form holds the Berita Acara report fields, the value transforms
// applied as they are entered, and the fixed HTML template they are
// rendered into.
package form

import (
	"fmt"
	"strings"
)

// Field names, as used by Apply and reported by Missing
const (
	FieldKodeToko      = "kodeToko"
	FieldNamaToko      = "namaToko"
	FieldNamaPersonil  = "namaPersonil"
	FieldNIK           = "nik"
	FieldJabatan       = "jabatan"
	FieldNominal       = "nominal"
	FieldTanggalVarian = "tanggalVarian"
	FieldKronologi     = "kronologi"
	FieldLokasi        = "lokasi"
	FieldTanggalDibuat = "tanggalDibuat"
	FieldWaktuDibuat   = "waktuDibuat"
)

// JabatanOptions are the store positions that may file a report
var JabatanOptions = []string{
	"Chief of Store",
	"Store Senior Leader",
	"Store Junior Leader",
}

// Data is one Berita Acara. Dates are yyyy-mm-dd.
type Data struct {
	KodeToko      string `json:"kodeToko"`
	NamaToko      string `json:"namaToko"`
	NamaPersonil  string `json:"namaPersonil"`
	NIK           string `json:"nik"`
	Jabatan       string `json:"jabatan"`
	Nominal       string `json:"nominal"`
	TanggalVarian string `json:"tanggalVarian"`
	Kronologi     string `json:"kronologi"`
	Lokasi        string `json:"lokasi"`
	TanggalDibuat string `json:"tanggalDibuat"`
	WaktuDibuat   string `json:"waktuDibuat,omitempty"`
}

func (d *Data) field(name string) (*string, bool) {
	switch name {
	case FieldKodeToko:
		return &d.KodeToko, true
	case FieldNamaToko:
		return &d.NamaToko, true
	case FieldNamaPersonil:
		return &d.NamaPersonil, true
	case FieldNIK:
		return &d.NIK, true
	case FieldJabatan:
		return &d.Jabatan, true
	case FieldNominal:
		return &d.Nominal, true
	case FieldTanggalVarian:
		return &d.TanggalVarian, true
	case FieldKronologi:
		return &d.Kronologi, true
	case FieldLokasi:
		return &d.Lokasi, true
	case FieldTanggalDibuat:
		return &d.TanggalDibuat, true
	case FieldWaktuDibuat:
		return &d.WaktuDibuat, true
	}
	return nil, false
}

// Apply sets a field through its value transform
func (d *Data) Apply(name, value string) error {
	p, ok := d.field(name)
	if !ok {
		return fmt.Errorf("unknown field %q", name)
	}
	*p = Transform(name, value)
	return nil
}

// Normalize runs every field through its value transform
func (d *Data) Normalize() {
	for _, name := range allFields {
		p, _ := d.field(name)
		*p = Transform(name, *p)
	}
}

var allFields = []string{
	FieldKodeToko, FieldNamaToko, FieldNamaPersonil, FieldNIK, FieldJabatan,
	FieldNominal, FieldTanggalVarian, FieldKronologi, FieldLokasi,
	FieldTanggalDibuat, FieldWaktuDibuat,
}

// RequiredFields must all be non-blank before a report can be built
var RequiredFields = []string{
	FieldKodeToko, FieldNamaToko, FieldNamaPersonil, FieldNIK, FieldJabatan,
	FieldNominal, FieldTanggalVarian, FieldKronologi, FieldLokasi, FieldTanggalDibuat,
}

// Missing lists the required fields that are blank
func (d *Data) Missing() []string {
	var out []string
	for _, name := range RequiredFields {
		p, _ := d.field(name)
		if strings.TrimSpace(*p) == "" {
			out = append(out, name)
		}
	}
	return out
}

// Complete reports whether every required field is filled
func (d *Data) Complete() bool {
	return len(d.Missing()) == 0
}
