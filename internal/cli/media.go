package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/law-makers/fbscrape/internal/downloader"
	"github.com/law-makers/fbscrape/internal/store"
	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/spf13/cobra"
)

var (
	mediaType    string
	mediaWorkers int
	mediaDir     string
	mediaTarget  string
	mediaLimit   uint64
)

var mediaCmd = &cobra.Command{
	Use:   "media [posts.json]",
	Short: "Download the images and videos of scraped posts",
	Long: `Downloads the media of posts from a JSON export, or from the database with
--target. Files are named <post id>_img<n> or <post id>_vid<n>; files already
on disk are skipped, so an interrupted download can simply be rerun.

Videos that only exist inside the browser (blob: URLs) cannot be downloaded
and are reported as failed.`,
	Example: `  # Images of an export
  fbscrape media posts.json --type image

  # Everything stored for a page, 8 downloads at a time
  fbscrape media --target nasa -c 8 -o ./nasa`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMedia,
}

func init() {
	rootCmd.AddCommand(mediaCmd)

	mediaCmd.Flags().StringVarP(&mediaType, "type", "t", "all", "Media to download: image, video or all")
	mediaCmd.Flags().IntVarP(&mediaWorkers, "concurrency", "c", 0, "Concurrent downloads (default from config, 4)")
	mediaCmd.Flags().StringVarP(&mediaDir, "output", "o", "", "Directory for the files (default from config)")
	mediaCmd.Flags().StringVar(&mediaTarget, "target", "", "Download media of stored posts of this page or group")
	mediaCmd.Flags().Uint64VarP(&mediaLimit, "limit", "n", 0, "With --target, only the newest posts")
}

func runMedia(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := appFrom(cmd)

	t, err := downloader.ParseMediaType(mediaType)
	if err != nil {
		return err
	}

	var posts []models.Post
	switch {
	case len(args) == 1 && mediaTarget != "":
		return fmt.Errorf("pass either a JSON file or --target")
	case len(args) == 1:
		posts, err = readPosts(args[0])
	case mediaTarget != "":
		var st *store.Store
		if st, err = a.Store(ctx); err == nil {
			posts, err = st.Posts(ctx, store.Query{Target: storedTarget(mediaTarget), Limit: mediaLimit})
		}
	default:
		return fmt.Errorf("pass a JSON file of posts or --target")
	}
	if err != nil {
		return err
	}

	return download(ctx, a, posts, t, mediaDir, mediaWorkers)
}

func readPosts(path string) ([]models.Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var posts []models.Post
	if err := json.NewDecoder(f).Decode(&posts); err != nil {
		return nil, fmt.Errorf("%s is not a JSON post export: %w", path, err)
	}
	return posts, nil
}
