package platform

import (
	"reflect"
	"testing"

	"github.com/avhost/castnode/internal/device"
)

func TestForOS(t *testing.T) {
	for _, goos := range []string{"linux", "darwin", "windows"} {
		p, err := ForOS(goos)
		if err != nil {
			t.Fatalf("ForOS(%q) error = %v", goos, err)
		}
		if p.Name() != goos {
			t.Errorf("Name() = %q, want %q", p.Name(), goos)
		}
	}

	if _, err := ForOS("plan9"); err == nil {
		t.Error("ForOS(plan9) should fail")
	}
}

func TestLinuxInputArgs(t *testing.T) {
	p := linuxProfile{}

	cam := p.InputArgs(device.Ref{Kind: device.Camera, PlatformID: "/dev/video0"}, 30)
	want := []string{"-f", "v4l2", "-framerate", "30", "-i", "/dev/video0"}
	if !reflect.DeepEqual(cam, want) {
		t.Errorf("camera args = %v, want %v", cam, want)
	}

	scr := p.InputArgs(device.Ref{Kind: device.ScreenRegion, CanonicalIndex: 1}, 30)
	want = []string{"-f", "x11grab", "-framerate", "30", "-i", ":1.0"}
	if !reflect.DeepEqual(scr, want) {
		t.Errorf("screen args = %v, want %v", scr, want)
	}
}

func TestDarwinInputArgs(t *testing.T) {
	p := darwinProfile{}

	cam := p.InputArgs(device.Ref{Kind: device.Camera, PlatformID: "0"}, 59.94)
	want := []string{"-f", "avfoundation", "-framerate", "59.94", "-i", "0:none"}
	if !reflect.DeepEqual(cam, want) {
		t.Errorf("camera args = %v, want %v", cam, want)
	}

	scr := p.InputArgs(device.Ref{Kind: device.ScreenRegion, CanonicalIndex: 0}, 60)
	want = []string{"-f", "avfoundation", "-capture_cursor", "1", "-framerate", "60", "-i", "Capture screen 0:none"}
	if !reflect.DeepEqual(scr, want) {
		t.Errorf("screen args = %v, want %v", scr, want)
	}
}

func TestWindowsInputArgs(t *testing.T) {
	p := windowsProfile{}

	cam := p.InputArgs(device.Ref{Kind: device.Camera, PlatformID: "HD WebCam"}, 30)
	want := []string{"-f", "dshow", "-framerate", "30", "-i", "video=HD WebCam"}
	if !reflect.DeepEqual(cam, want) {
		t.Errorf("camera args = %v, want %v", cam, want)
	}

	aud := p.AudioArgs(device.Ref{Kind: device.Microphone, PlatformID: "Microphone Array"})
	want = []string{"-f", "dshow", "-i", "audio=Microphone Array"}
	if !reflect.DeepEqual(aud, want) {
		t.Errorf("audio args = %v, want %v", aud, want)
	}
}

func TestDarwinProbePatterns(t *testing.T) {
	spec := darwinProfile{}.Probe(device.Camera)

	m := spec.Header.FindStringSubmatch(`[AVFoundation indev @ 0x7f8] [0] FaceTime HD Camera`)
	if m == nil {
		t.Fatal("header pattern did not match device line")
	}
	if m[spec.Header.SubexpIndex("id")] != "0" {
		t.Errorf("header id = %q, want 0", m[spec.Header.SubexpIndex("id")])
	}
	if m[spec.Header.SubexpIndex("name")] != "FaceTime HD Camera" {
		t.Errorf("header name = %q", m[spec.Header.SubexpIndex("name")])
	}

	m = spec.Mode.FindStringSubmatch(`[AVFoundation indev @ 0x7f8]   1920x1080@[1.000000 30.000030]fps`)
	if m == nil {
		t.Fatal("mode pattern did not match mode line")
	}
	if m[spec.Mode.SubexpIndex("fps")] != "30.000030" {
		t.Errorf("mode fps = %q, want 30.000030", m[spec.Mode.SubexpIndex("fps")])
	}
}

func TestLinuxProbePatterns(t *testing.T) {
	spec := linuxProfile{}.Probe(device.Camera)

	if spec.Header.FindStringSubmatch("/dev/video2") == nil {
		t.Error("header pattern did not match device node line")
	}

	m := spec.Mode.FindStringSubmatch("\t\t\tInterval: Discrete 0.033s (30.000 fps)")
	if m == nil {
		t.Fatal("mode pattern did not match interval line")
	}
	if m[spec.Mode.SubexpIndex("fps")] != "30.000" {
		t.Errorf("mode fps = %q, want 30.000", m[spec.Mode.SubexpIndex("fps")])
	}

	m = spec.Size.FindStringSubmatch("\t\tSize: Discrete 1920x1080")
	if m == nil {
		t.Fatal("size pattern did not match size line")
	}
	if m[spec.Size.SubexpIndex("w")] != "1920" {
		t.Errorf("size w = %q, want 1920", m[spec.Size.SubexpIndex("w")])
	}
}

func TestWindowsProbePatterns(t *testing.T) {
	spec := windowsProfile{}.Probe(device.Camera)

	m := spec.Header.FindStringSubmatch(`[dshow @ 0x1a2b] "HD WebCam" (video)`)
	if m == nil {
		t.Fatal("header pattern did not match device line")
	}
	if m[spec.Header.SubexpIndex("id")] != "HD WebCam" {
		t.Errorf("header id = %q", m[spec.Header.SubexpIndex("id")])
	}

	m = spec.Mode.FindStringSubmatch(`[dshow @ 0x1a2b]   pixel_format=yuyv422  min s=640x480 fps=30 max s=1280x720 fps=60`)
	if m == nil {
		t.Fatal("mode pattern did not match options line")
	}
	if m[spec.Mode.SubexpIndex("fps")] != "60" {
		t.Errorf("mode fps = %q, want 60", m[spec.Mode.SubexpIndex("fps")])
	}
}
