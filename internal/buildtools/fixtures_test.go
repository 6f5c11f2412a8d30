package buildtools

import "github.com/wheelsmith/wheelsmith/internal/toolkit"

func toolkitFixture() toolkit.Toolkit {
	return toolkit.Toolkit{
		ShortVersion: "118",
		FullVersion:  "11.8.0",
		InstallerURL: "https://developer.download.nvidia.com/compute/cuda/11.8.0/local_installers/cuda_11.8.0_520.61.05_linux.run",
	}
}
