package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"lostfound/internal/config"
	"lostfound/internal/server"
	"lostfound/internal/version"
)

func main() {
	_ = config.LoadAndApply()
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		fs := flag.NewFlagSet("serve", flag.ExitOnError)
		addr := fs.String("addr", ":8080", "listen address")
		_ = fs.Parse(os.Args[2:])
		if err := server.Run(*addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	case "report":
		reportCmd(os.Args[2:])
	case "list":
		listCmd(os.Args[2:])
	case "search":
		searchCmd(os.Args[2:])
	case "version":
		fmt.Println(version.String())
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`lostfound - campus lost & found service

usage:
  lostfound serve [-addr :8080]        run the HTTP server
  lostfound report [flags]             report a found item
  lostfound search "<query>" -campus <tag>
  lostfound list                       list all reported items
  lostfound version`)
}

func serverURL() string {
	if v := os.Getenv("LOSTFOUND_SERVER_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://127.0.0.1:8080"
}

func postJSON(path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, serverURL()+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := os.Getenv("LOSTFOUND_API_TOKEN"); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

func getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, serverURL()+path, nil)
	if err != nil {
		return err
	}
	if tok := os.Getenv("LOSTFOUND_API_TOKEN"); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	title := fs.String("title", "", "item title (required)")
	desc := fs.String("desc", "", "free-text description (required)")
	campus := fs.String("campus", "", "campus tag (required)")
	location := fs.String("location", "", "specific location name (required)")
	lat := fs.Float64("lat", 0, "latitude")
	lng := fs.Float64("lng", 0, "longitude")
	image := fs.String("image", "", "path to a photo (jpeg/png)")
	contactName := fs.String("contact-name", "", "contact name")
	contactPhone := fs.String("contact-phone", "", "contact phone")
	contactNote := fs.String("contact-note", "", "contact note")
	_ = fs.Parse(args)
	if *title == "" || *desc == "" || *campus == "" || *location == "" {
		fmt.Fprintln(os.Stderr, "report: -title, -desc, -campus and -location are required")
		os.Exit(1)
	}

	body := map[string]any{
		"title":           *title,
		"textDescription": *desc,
		"campusTag":       *campus,
		"locationName":    *location,
	}
	if flagSet(fs, "lat") {
		body["lat"] = *lat
	}
	if flagSet(fs, "lng") {
		body["lng"] = *lng
	}
	if *image != "" {
		dataURL, err := imageDataURL(*image)
		if err != nil {
			fmt.Fprintf(os.Stderr, "report: %v\n", err)
			os.Exit(1)
		}
		body["imageBase64"] = dataURL
	}
	if *contactName != "" {
		body["contactName"] = *contactName
	}
	if *contactPhone != "" {
		body["contactPhone"] = *contactPhone
	}
	if *contactNote != "" {
		body["contactNote"] = *contactNote
	}

	var res struct {
		OK    bool   `json:"ok"`
		ID    string `json:"id"`
		Error string `json:"error"`
	}
	if err := postJSON("/api/items", body, &res); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !res.OK {
		fmt.Fprintf(os.Stderr, "report failed: %s\n", res.Error)
		os.Exit(1)
	}
	fmt.Println(res.ID)
}

func flagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func imageDataURL(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mime := "image/jpeg"
	if strings.EqualFold(filepath.Ext(path), ".png") {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}

func listCmd(args []string) {
	_ = args
	var res struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
		Items []struct {
			ID           string `json:"id"`
			Title        string `json:"title"`
			CampusTag    string `json:"campusTag"`
			LocationName string `json:"locationName"`
			CreatedAt    string `json:"createdAt"`
		} `json:"items"`
	}
	if err := getJSON("/api/list", &res); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !res.OK {
		fmt.Fprintf(os.Stderr, "list failed: %s\n", res.Error)
		os.Exit(1)
	}
	for _, it := range res.Items {
		fmt.Printf("%s  %-12s %-20s %s\n", it.CreatedAt, it.CampusTag, it.Title, it.LocationName)
	}
}

func searchCmd(args []string) {
	if len(args) == 0 {
		fmt.Println(`usage: lostfound search "<query>" -campus <tag>`)
		os.Exit(1)
	}
	query := args[0]
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	campus := fs.String("campus", "", "campus tag (required)")
	_ = fs.Parse(args[1:])
	if *campus == "" {
		fmt.Fprintln(os.Stderr, "search: -campus is required")
		os.Exit(1)
	}

	var res struct {
		OK      bool   `json:"ok"`
		Error   string `json:"error"`
		Results []struct {
			ID           string  `json:"id"`
			Score        float64 `json:"score"`
			Title        string  `json:"title"`
			LocationName string  `json:"locationName"`
			ContactName  string  `json:"contactName"`
			ContactPhone string  `json:"contactPhone"`
		} `json:"results"`
	}
	if err := postJSON("/api/search", map[string]string{"campusTag": *campus, "queryText": query}, &res); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !res.OK {
		fmt.Fprintf(os.Stderr, "search failed: %s\n", res.Error)
		os.Exit(1)
	}
	if len(res.Results) == 0 {
		fmt.Println("no matches")
		return
	}
	for _, r := range res.Results {
		contact := r.ContactName
		if r.ContactPhone != "" {
			contact += " " + r.ContactPhone
		}
		fmt.Printf("%.3f  %-20s %-20s %s\n", r.Score, r.Title, r.LocationName, strings.TrimSpace(contact))
	}
}
