package task

// ExampleImages is the fixed pool of fallback images used when every
// user-supplied input fails to upload.
var ExampleImages = []string{
	"https://images.unsplash.com/photo-1682687982501-1e58ab814714", // mountains
	"https://images.unsplash.com/photo-1575936123452-b67c3203c357", // city at night
	"https://images.unsplash.com/photo-1566275529824-cca6d008f3da", // forest
	"https://images.unsplash.com/photo-1595433707802-6b2626ef1c91", // fox
	"https://images.unsplash.com/photo-1511300636408-a63a89df3482", // beach
}

// DemoVideo is a stock result shown when the provider is unavailable.
type DemoVideo struct {
	VideoURL    string `json:"video_url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DemoVideos lists publicly hosted sample clips.
var DemoVideos = []DemoVideo{
	{
		VideoURL:    "https://storage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4",
		Title:       "Big Buck Bunny",
		Description: "Sample video - Big Buck Bunny",
	},
	{
		VideoURL:    "https://storage.googleapis.com/gtv-videos-bucket/sample/ElephantsDream.mp4",
		Title:       "Elephant's Dream",
		Description: "Sample video - Elephant's Dream",
	},
	{
		VideoURL:    "https://storage.googleapis.com/gtv-videos-bucket/sample/ForBiggerBlazes.mp4",
		Title:       "For Bigger Blazes",
		Description: "Sample video - For Bigger Blazes",
	},
	{
		VideoURL:    "https://storage.googleapis.com/gtv-videos-bucket/sample/ForBiggerEscapes.mp4",
		Title:       "For Bigger Escapes",
		Description: "Sample video - For Bigger Escapes",
	},
	{
		VideoURL:    "https://storage.googleapis.com/gtv-videos-bucket/sample/ForBiggerFun.mp4",
		Title:       "For Bigger Fun",
		Description: "Sample video - For Bigger Fun",
	},
}
