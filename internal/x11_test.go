package internal

import (
	"reflect"
	"testing"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
)

func TestTranslateEvent(t *testing.T) {
	km := testKeymap()
	tests := []struct {
		name   string
		ev     xgb.Event
		want   Event
		wantOK bool
	}{
		{name: "last expose redraws", ev: xproto.ExposeEvent{Count: 0}, want: RedrawEvent{}, wantOK: true},
		{name: "expose with more to come", ev: xproto.ExposeEvent{Count: 2}, wantOK: false},
		{
			name:   "key press",
			ev:     xproto.KeyPressEvent{Detail: codeA, State: maskShift},
			want:   KeyEvent{Keysym: 'A', Text: []byte("A")},
			wantOK: true,
		},
		{name: "mapping notify", ev: xproto.MappingNotifyEvent{}, want: OtherEvent{Kind: "MappingNotify"}, wantOK: true},
		{
			name:   "unhandled event",
			ev:     xproto.ButtonPressEvent{},
			want:   OtherEvent{Kind: "xproto.ButtonPressEvent"},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := translateEvent(km, tt.ev)
			if ok != tt.wantOK {
				t.Fatalf("expected ok %v, got %v", tt.wantOK, ok)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestTranslateScreenChangeRotation(t *testing.T) {
	tests := []struct {
		name     string
		rotation byte
		want     bool
	}{
		{name: "rotate 0", rotation: randr.RotationRotate0, want: false},
		{name: "rotate 90", rotation: randr.RotationRotate90, want: true},
		{name: "rotate 180", rotation: randr.RotationRotate180, want: false},
		{name: "rotate 270", rotation: randr.RotationRotate270, want: true},
		{name: "reflect x with rotate 0", rotation: randr.RotationRotate0 | randr.RotationReflectX, want: false},
		{name: "reflect y with rotate 90", rotation: randr.RotationRotate90 | randr.RotationReflectY, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := randr.ScreenChangeNotifyEvent{
				Rotation:      tt.rotation,
				RequestWindow: 0x400001,
				Width:         1920,
				Height:        1080,
			}
			got, ok := translateEvent(testKeymap(), ev)
			if !ok {
				t.Fatal("expected screen change to be delivered")
			}
			want := TopologyEvent{Window: 0x400001, Width: 1920, Height: 1080, Rotated: tt.want}
			if got != want {
				t.Errorf("expected %+v, got %+v", want, got)
			}
		})
	}
}
